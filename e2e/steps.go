package e2e

import (
	"github.com/cucumber/godog"

	"arisan/e2e/steps/common"
	"arisan/e2e/steps/pool"
	"arisan/e2e/steps/trust"
)

// RegisterSteps registers the step definitions of every step package.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	pool.RegisterSteps(ctx, tc)
	trust.RegisterSteps(ctx, tc)
}
