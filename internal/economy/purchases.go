package economy

import (
	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/mathutil"
)

// PurchaseResult reports the outcome of a purchase.
type PurchaseResult struct {
	OK        bool    `json:"ok"`
	Item      string  `json:"item"`
	Price     float64 `json:"price"`
	Shortfall float64 `json:"shortfall,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// Price returns the price of an item.
func (e *Economy) Price(item string) (float64, bool) {
	p, ok := e.tables.Prices[item]
	return p, ok
}

// Purchase buys an item if cash covers its price.
func (e *Economy) Purchase(item string) PurchaseResult {
	price, ok := e.tables.Prices[item]
	if !ok {
		return PurchaseResult{Item: item, Reason: "unknown item"}
	}
	if item == constants.ItemDredgeNet && e.state.Tech.NetType == constants.NetDredge {
		return PurchaseResult{Item: item, Price: price, Reason: "already fitted"}
	}
	if e.state.Cash < price {
		return PurchaseResult{
			Item:      item,
			Price:     price,
			Shortfall: mathutil.Round(price - e.state.Cash),
			Reason:    "insufficient funds",
		}
	}

	e.state.Cash -= price
	switch item {
	case constants.ItemMotorboat:
		e.state.Fleet.Motorboats++
	case constants.ItemTrawler:
		e.state.Fleet.Trawlers++
	case constants.ItemDredgeNet:
		e.state.Tech.NetType = constants.NetDredge
	case constants.ItemDieselEngine:
		e.state.Tech.EngineType = constants.EngineDiesel
	}

	e.logger.Info("purchase completed",
		zap.String("op", "economy.Purchase"),
		zap.String("item", item),
		zap.Float64("price", price),
		zap.Float64("cash", e.state.Cash),
	)
	return PurchaseResult{OK: true, Item: item, Price: price}
}

// ActivateSavings turns on the austerity policy and restarts its schedule.
func (e *Economy) ActivateSavings(amount float64, cfg SavingsConfig) {
	cfg.TavernLevel = levelOrFull(cfg.TavernLevel)
	cfg.ShipyardLevel = levelOrFull(cfg.ShipyardLevel)
	e.state.IsSavingActive = true
	e.state.SavingsAmount = mathutil.Max(amount, 0)
	e.state.SavingsConfig = cfg
	e.state.AusterityTrips = 0
	e.logger.Info("savings activated",
		zap.String("op", "economy.ActivateSavings"),
		zap.Float64("amount", amount),
		zap.String("tavern", cfg.TavernLevel),
		zap.String("shipyard", cfg.ShipyardLevel),
	)
}

// DeactivateSavings ends the austerity policy.
func (e *Economy) DeactivateSavings() {
	if !e.state.IsSavingActive {
		return
	}
	e.state.IsSavingActive = false
	e.state.SavingsAmount = 0
	e.state.SavingsConfig = SavingsConfig{TavernLevel: constants.LevelFull, ShipyardLevel: constants.LevelFull}
}

// SavingsFor computes the per-trip saving of a config compared to full
// spending.
func (e *Economy) SavingsFor(cfg SavingsConfig) float64 {
	full := e.tables.AusterityCost[constants.LevelFull]
	chosen := Split{
		Shipyard: e.tables.AusterityCost[levelOrFull(cfg.ShipyardLevel)].Shipyard,
		Tavern:   e.tables.AusterityCost[levelOrFull(cfg.TavernLevel)].Tavern,
	}
	return full.Total() - chosen.Total()
}
