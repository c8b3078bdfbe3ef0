package economy

import (
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/mathutil"
)

// extract removes one trip's catch from the stock and returns the catch and
// any collateral damage. Destructive netting takes a fixed larger catch and
// then destroys a share of what is left; otherwise the stock regrows
// logistically after the catch.
func (e *Economy) extract(key string) (caught, collateral float64) {
	eco := &e.state.Ecology
	destructive := e.state.Tech.NetType == constants.NetDredge

	catch := e.tables.Catch[key]
	if destructive {
		catch = e.tables.Catch[constants.KeyDredge]
	}
	caught = mathutil.Min(catch, eco.Stock)
	eco.Stock -= caught

	if destructive {
		collateral = e.settings.CollateralDamage * eco.Stock
		eco.Stock -= collateral
	} else {
		eco.Stock += Regrowth(eco.Stock, eco.Max, e.settings.EcologyGrowthRate)
	}
	eco.Stock = mathutil.Clamp(eco.Stock, 0, eco.Max)
	return caught, collateral
}

// Regrowth is the logistic growth term r·s·(1 - s/max).
func Regrowth(stock, max, rate float64) float64 {
	if max <= 0 {
		return 0
	}
	return rate * stock * (1 - stock/max)
}

// CollapseReached reports whether the stock is at or below the collapse
// threshold.
func (e *Economy) CollapseReached() bool {
	return e.state.Ecology.Percent() <= constants.EcologyCollapsePercent
}
