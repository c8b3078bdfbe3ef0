package content

import (
	"embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFiles embed.FS

// ErrUnknownPhase is returned when a phase id is not in the table.
var ErrUnknownPhase = errors.New("unknown phase")

// Tables is the loaded, validated content.
type Tables struct {
	phases    map[PhaseID]Phase
	scenes    map[string]Scene
	sequences []Sequence
}

type phaseFile struct {
	Phases []Phase `yaml:"phases" validate:"required,dive"`
}

type sceneFile struct {
	Scenes []Scene `yaml:"scenes" validate:"required,dive"`
}

type sequenceFile struct {
	Sequences []Sequence `yaml:"sequences" validate:"required,dive"`
}

// Load parses the embedded campaign tables.
func Load() (*Tables, error) {
	phases, err := dataFiles.ReadFile("data/phases.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read phases: %w", err)
	}
	scenes, err := dataFiles.ReadFile("data/scenes.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read scenes: %w", err)
	}
	sequences, err := dataFiles.ReadFile("data/sequences.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read sequences: %w", err)
	}
	return Parse(phases, scenes, sequences)
}

// MustLoad is Load for static content that is known to be valid.
func MustLoad() *Tables {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse decodes and validates the three YAML documents.
func Parse(phasesYAML, scenesYAML, sequencesYAML []byte) (*Tables, error) {
	var pf phaseFile
	if err := yaml.Unmarshal(phasesYAML, &pf); err != nil {
		return nil, fmt.Errorf("phases.yaml: %w", err)
	}
	var sf sceneFile
	if err := yaml.Unmarshal(scenesYAML, &sf); err != nil {
		return nil, fmt.Errorf("scenes.yaml: %w", err)
	}
	var qf sequenceFile
	if err := yaml.Unmarshal(sequencesYAML, &qf); err != nil {
		return nil, fmt.Errorf("sequences.yaml: %w", err)
	}

	v := validator.New()
	for name, doc := range map[string]any{"phases.yaml": pf, "scenes.yaml": sf, "sequences.yaml": qf} {
		if err := v.Struct(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	t := &Tables{
		phases:    make(map[PhaseID]Phase, len(pf.Phases)),
		scenes:    make(map[string]Scene, len(sf.Scenes)),
		sequences: qf.Sequences,
	}
	for _, p := range pf.Phases {
		if !p.ID.Valid() {
			return nil, fmt.Errorf("phases.yaml: %w: %s", ErrUnknownPhase, p.ID)
		}
		if _, dup := t.phases[p.ID]; dup {
			return nil, fmt.Errorf("phases.yaml: duplicate phase %s", p.ID)
		}
		t.phases[p.ID] = p
	}
	for _, s := range sf.Scenes {
		if _, dup := t.scenes[s.ID]; dup {
			return nil, fmt.Errorf("scenes.yaml: duplicate scene %s", s.ID)
		}
		t.scenes[s.ID] = s
	}

	if err := t.crossCheck(); err != nil {
		return nil, err
	}
	return t, nil
}

// crossCheck verifies references between tables.
func (t *Tables) crossCheck() error {
	var problems []string
	sceneRef := func(where, id string) {
		if id == "" {
			return
		}
		if _, ok := t.scenes[id]; !ok {
			problems = append(problems, fmt.Sprintf("%s references unknown scene %q", where, id))
		}
	}

	for _, id := range PhaseOrder {
		p, ok := t.phases[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("phase %s is missing", id))
			continue
		}
		sceneRef("phase "+string(id)+" intro", p.IntroScene)
		sceneRef("phase "+string(id)+" completion", p.CompleteScene)
		for building, scene := range p.Buildings {
			sceneRef("phase "+string(id)+" building "+building, scene)
		}
		seen := make(map[string]bool)
		for _, o := range p.Objectives {
			if seen[o.ID] {
				problems = append(problems, fmt.Sprintf("phase %s has duplicate objective %q", id, o.ID))
			}
			seen[o.ID] = true
		}
	}

	for _, s := range t.scenes {
		sceneRef("scene "+s.ID+" next", s.Next)
		for _, c := range s.Choices {
			if !slices.Contains(Actions, c.Action) {
				problems = append(problems, fmt.Sprintf("scene %s choice %s has unknown action %q", s.ID, c.ID, c.Action))
			}
			switch c.Action {
			case ActionAdvancePhase:
				if !PhaseID(c.Param).Valid() {
					problems = append(problems, fmt.Sprintf("scene %s choice %s advances to unknown phase %q", s.ID, c.ID, c.Param))
				}
			case ActionTrigger:
				sceneRef("scene "+s.ID+" choice "+c.ID, c.Param)
			}
		}
	}

	names := make(map[string]bool)
	for _, q := range t.sequences {
		if names[q.Name] {
			problems = append(problems, fmt.Sprintf("duplicate sequence %q", q.Name))
		}
		names[q.Name] = true
		if q.Phase != "" && !q.Phase.Valid() {
			problems = append(problems, fmt.Sprintf("sequence %s has unknown phase %q", q.Name, q.Phase))
		}
		delivered := false
		for i, step := range q.Steps {
			if !slices.Contains(StepVerbs, step.Do) {
				problems = append(problems, fmt.Sprintf("sequence %s step %d has unknown verb %q", q.Name, i, step.Do))
			}
			switch step.Do {
			case StepDeliver:
				delivered = true
			case StepCommit:
				if !delivered {
					problems = append(problems, fmt.Sprintf("sequence %s commits before any delivery", q.Name))
				}
			case StepAwaitScene:
				if step.Scene == "" {
					problems = append(problems, fmt.Sprintf("sequence %s step %d awaits no scene", q.Name, i))
				}
				sceneRef("sequence "+q.Name, step.Scene)
			case StepAwaitClick:
				if step.Building == "" {
					problems = append(problems, fmt.Sprintf("sequence %s step %d awaits no building", q.Name, i))
				}
			}
		}
	}
	if _, ok := t.lookup("", 0, false); !ok {
		problems = append(problems, "no default sequence")
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("content validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Phase returns a deep copy of the phase definition, so callers may mutate
// the objective list without touching the template.
func (t *Tables) Phase(id PhaseID) (Phase, error) {
	p, ok := t.phases[id]
	if !ok {
		return Phase{}, fmt.Errorf("%w: %s", ErrUnknownPhase, id)
	}
	p.Objectives = slices.Clone(p.Objectives)
	p.Buildings = maps.Clone(p.Buildings)
	return p, nil
}

// Scene looks up a scene by id.
func (t *Tables) Scene(id string) (Scene, bool) {
	s, ok := t.scenes[id]
	if !ok {
		return Scene{}, false
	}
	s.Choices = slices.Clone(s.Choices)
	s.Speakers = slices.Clone(s.Speakers)
	return s, true
}

// SceneIDs returns all scene ids, sorted.
func (t *Tables) SceneIDs() []string {
	return slices.Sorted(maps.Keys(t.scenes))
}

// Sequence resolves the trip sequence for a trip. Austerity trips match on
// the austerity counter; past the last authored austerity trip they replay
// it, and with none authored they fall back to the phase table. Phase trips match
// the exact trip index, then the phase default, then the global default.
func (t *Tables) Sequence(phase PhaseID, trip int, austerityTrip int) Sequence {
	if austerityTrip > 0 {
		if q, ok := t.lookup("", austerityTrip, true); ok {
			return q
		}
		if last := t.lastAusterityTrip(); last > 0 && austerityTrip > last {
			if q, ok := t.lookup("", last, true); ok {
				return q
			}
		}
	}
	if q, ok := t.lookup(phase, trip, false); ok {
		return q
	}
	if q, ok := t.lookup(phase, 0, false); ok {
		return q
	}
	q, _ := t.lookup("", 0, false)
	return q
}

// lastAusterityTrip returns the highest austerity trip with an authored
// sequence, or 0 if there is none.
func (t *Tables) lastAusterityTrip() int {
	last := 0
	for _, q := range t.sequences {
		if q.Austerity && q.Phase == "" && q.Trip > last {
			last = q.Trip
		}
	}
	return last
}

func (t *Tables) lookup(phase PhaseID, trip int, austerity bool) (Sequence, bool) {
	for _, q := range t.sequences {
		if q.Phase == phase && q.Trip == trip && q.Austerity == austerity {
			q.Steps = slices.Clone(q.Steps)
			return q, true
		}
	}
	return Sequence{}, false
}

// Next returns the phase after id in campaign order.
func Next(id PhaseID) (PhaseID, bool) {
	i := slices.Index(PhaseOrder, id)
	if i < 0 || i+1 >= len(PhaseOrder) {
		return "", false
	}
	return PhaseOrder[i+1], true
}
