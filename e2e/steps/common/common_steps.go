package common

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context these steps need.
type TestContext interface {
	Do(ctx context.Context, method, path, actor string, body any) error
	GET(ctx context.Context, path string) error
	Actor(name string) string
	Remember(key, value string)
	Recall(key string) string
	LastStatus() int
	Decode(v any) error
	ExpectStatus(want int) error
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the server is healthy$`, steps.serverIsHealthy)
	ctx.Step(`^"([^"]*)" claims from the faucet$`, steps.claimsFromFaucet)
	ctx.Step(`^"([^"]*)" approves "([^"]*)" for (\d+)$`, steps.approves)
	ctx.Step(`^the balance of "([^"]*)" should have changed by (-?\d+)$`, steps.balanceChangedBy)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error reason should be "([^"]*)"$`, steps.errorReasonShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsHealthy(ctx context.Context) error {
	if err := s.tc.GET(ctx, "/healthz"); err != nil {
		return err
	}
	return s.tc.ExpectStatus(http.StatusOK)
}

func (s *commonSteps) claimsFromFaucet(ctx context.Context, actor string) error {
	if err := s.tc.Do(ctx, http.MethodPost, "/token/faucet", actor, nil); err != nil {
		return err
	}
	if err := s.tc.ExpectStatus(http.StatusOK); err != nil {
		return err
	}
	return s.rememberBalance(ctx, actor)
}

// approves resolves spender as an actor, or as the custody address of the
// last created pool when spender is "the pool".
func (s *commonSteps) approves(ctx context.Context, owner, spender string, amount int) error {
	addr := s.tc.Actor(spender)
	if spender == "the pool" {
		addr = s.tc.Recall("custody_address")
	}
	body := map[string]any{"spender": addr, "amount": amount}
	if err := s.tc.Do(ctx, http.MethodPost, "/token/approve", owner, body); err != nil {
		return err
	}
	return s.tc.ExpectStatus(http.StatusOK)
}

func (s *commonSteps) balanceChangedBy(ctx context.Context, actor string, delta int64) error {
	before := s.tc.Recall("balance:" + actor)
	current, err := s.balanceOf(ctx, actor)
	if err != nil {
		return err
	}
	var start int64
	if _, err := fmt.Sscan(before, &start); err != nil {
		return fmt.Errorf("no starting balance recorded for %s", actor)
	}
	if got := current - start; got != delta {
		return fmt.Errorf("balance of %s changed by %d, want %d", actor, got, delta)
	}
	return nil
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, status int) error {
	return s.tc.ExpectStatus(status)
}

func (s *commonSteps) errorReasonShouldBe(_ context.Context, reason string) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := s.tc.Decode(&body); err != nil {
		return err
	}
	if body.Reason != reason {
		return fmt.Errorf("expected reason %q, got %q", reason, body.Reason)
	}
	return nil
}

func (s *commonSteps) rememberBalance(ctx context.Context, actor string) error {
	balance, err := s.balanceOf(ctx, actor)
	if err != nil {
		return err
	}
	s.tc.Remember("balance:"+actor, fmt.Sprint(balance))
	return nil
}

func (s *commonSteps) balanceOf(ctx context.Context, actor string) (int64, error) {
	if err := s.tc.GET(ctx, "/token/balances/"+s.tc.Actor(actor)); err != nil {
		return 0, err
	}
	if err := s.tc.ExpectStatus(http.StatusOK); err != nil {
		return 0, err
	}
	var body struct {
		Balance int64 `json:"balance"`
	}
	if err := s.tc.Decode(&body); err != nil {
		return 0, err
	}
	return body.Balance, nil
}
