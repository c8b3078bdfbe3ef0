package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/director"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/session"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/output"
	"github.com/iwvelando/boom-bust/pkg/validation"
)

const (
	drainStep  = 100 * time.Millisecond
	drainLimit = 10 * time.Minute
)

// Script is a headless play-through: a list of player actions applied in
// order to a fresh session.
type Script struct {
	ContinueOnError bool         `yaml:"continueOnError"`
	Steps           []ScriptStep `yaml:"steps"`
}

// ScriptStep holds exactly one action.
type ScriptStep struct {
	Trip    string        `yaml:"trip,omitempty"`
	Click   string        `yaml:"click,omitempty"`
	Choice  *ChoiceStep   `yaml:"choice,omitempty"`
	Close   string        `yaml:"close,omitempty"`
	Savings *SavingsStep  `yaml:"savings,omitempty"`
	Loan    float64       `yaml:"loan,omitempty"`
	Repay   bool          `yaml:"repay,omitempty"`
	Buy     string        `yaml:"buy,omitempty"`
	Wait    time.Duration `yaml:"wait,omitempty"`
	Skip    bool          `yaml:"skip,omitempty"`
	Jump    string        `yaml:"jump,omitempty"`
}

type ChoiceStep struct {
	Scene string `yaml:"scene"`
	ID    string `yaml:"id"`
}

type SavingsStep struct {
	Amount   float64 `yaml:"amount"`
	Tavern   string  `yaml:"tavern"`
	Shipyard string  `yaml:"shipyard"`
}

// name returns the action the step holds, or an error unless exactly one
// is set.
func (s ScriptStep) name() (string, error) {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(s.Trip != "", "trip")
	add(s.Click != "", "click")
	add(s.Choice != nil, "choice")
	add(s.Close != "", "close")
	add(s.Savings != nil, "savings")
	add(s.Loan != 0, "loan")
	add(s.Repay, "repay")
	add(s.Buy != "", "buy")
	add(s.Wait != 0, "wait")
	add(s.Skip, "skip")
	add(s.Jump != "", "jump")

	switch len(set) {
	case 0:
		return "", errors.New("step has no action")
	case 1:
		return set[0], nil
	default:
		return "", fmt.Errorf("step has several actions: %s", strings.Join(set, ", "))
	}
}

// LoadScript reads and checks a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, st := range sc.Steps {
		name, err := st.name()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		switch name {
		case "trip":
			if err := validation.ValidateBoatType(st.Trip); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		case "savings":
			for _, level := range []string{st.Savings.Tavern, st.Savings.Shipyard} {
				if err := validation.ValidateSavingsLevel(level); err != nil {
					return nil, fmt.Errorf("step %d: %w", i+1, err)
				}
			}
		case "wait":
			if st.Wait < 0 {
				return nil, fmt.Errorf("step %d: wait must not be negative", i+1)
			}
		}
	}
	return &sc, nil
}

// RunScript applies every step to sess. Trips run their reveal until the
// sequence ends or stops for player input.
func RunScript(logger *zap.Logger, sess *session.Session, sc *Script) error {
	const op = "main.RunScript"
	if logger == nil {
		logger = zap.NewNop()
	}
	sess.Start()

	for i, st := range sc.Steps {
		name, err := st.name()
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := runStep(sess, st, name); err != nil {
			if !sc.ContinueOnError {
				return fmt.Errorf("step %d (%s): %w", i+1, name, err)
			}
			logger.Warn("script step failed",
				zap.String("op", op),
				zap.Int("step", i+1),
				zap.String("action", name),
				zap.Error(err),
			)
			continue
		}
		logger.Debug("script step applied",
			zap.String("op", op),
			zap.Int("step", i+1),
			zap.String("action", name),
			zap.String("phase", string(sess.Director().State().Phase)),
		)
	}
	return nil
}

func runStep(sess *session.Session, st ScriptStep, name string) error {
	switch name {
	case "trip":
		if err := sess.Send(events.TripRequested{BoatType: st.Trip}); err != nil {
			return err
		}
		drain(sess)
	case "click":
		if err := sess.Send(events.BuildingClicked{Type: st.Click, ID: st.Click}); err != nil {
			return err
		}
		drain(sess)
	case "choice":
		if err := sess.Send(events.ChoiceMade{SceneID: st.Choice.Scene, ChoiceID: st.Choice.ID}); err != nil {
			return err
		}
		drain(sess)
	case "close":
		if err := sess.Send(events.DialogClosed{ID: st.Close}); err != nil {
			return err
		}
		drain(sess)
	case "savings":
		return sess.Send(events.SavingsConfirmed{
			Amount:        st.Savings.Amount,
			TavernLevel:   st.Savings.Tavern,
			ShipyardLevel: st.Savings.Shipyard,
		})
	case "loan":
		return sess.Apply(func(d *director.Director) error { return d.TakeLoan(st.Loan, 0) })
	case "repay":
		return sess.Apply(func(d *director.Director) error {
			_, err := d.RepayLoan()
			return err
		})
	case "buy":
		return sess.Apply(func(d *director.Director) error {
			_, err := d.Purchase(st.Buy)
			return err
		})
	case "wait":
		sess.Advance(st.Wait)
	case "skip":
		if !sess.Skip() {
			return errors.New("no sequence is running")
		}
	case "jump":
		id := content.PhaseID(strings.ToUpper(st.Jump))
		return sess.Apply(func(d *director.Director) error { return d.JumpToPhase(id) })
	}
	return nil
}

// drain advances virtual time while a sequence runs without waiting on
// the player.
func drain(sess *session.Session) {
	for elapsed := time.Duration(0); elapsed < drainLimit; elapsed += drainStep {
		st := sess.Director().State()
		if !st.SequenceRunning || st.SceneActive || st.AwaitingClick != "" {
			return
		}
		sess.Advance(drainStep)
	}
}

func newPlayCommand() *cobra.Command {
	var (
		scriptPath   string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run a scripted play-through and print the trip ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			format := conf.Output.Format
			if outputFormat != "" {
				format = outputFormat
			}
			if format == "" {
				format = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			sc, err := LoadScript(scriptPath)
			if err != nil {
				return err
			}

			conf.Director.AutoCloseScenes = true
			sess, err := session.New(logger.Named("session"), conf)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			if err := RunScript(logger, sess, sc); err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), sess, format)
		},
	}
	cmd.Flags().StringVar(&scriptPath, "script", "", "path to the play script")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func report(w io.Writer, sess *session.Session, format string) error {
	if err := output.Write(w, format, sess.Trips()); err != nil {
		return err
	}
	if format == constants.OutputFormatCSV {
		return nil
	}
	st := sess.Director().State()
	ledger := sess.Economy().State()
	_, err := fmt.Fprintf(w, "\nPhase %s, cash %.2f, market health %.2f, stock %.0f\n",
		st.Phase, ledger.Cash, ledger.MarketHealth, ledger.Ecology.Stock)
	return err
}
