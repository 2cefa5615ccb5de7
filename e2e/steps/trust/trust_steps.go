package trust

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Do(ctx context.Context, method, path, actor string, body any) error
	GET(ctx context.Context, path string) error
	Actor(name string) string
	Decode(v any) error
	ExpectStatus(want int) error
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &trustSteps{tc: tc}

	ctx.Step(`^"([^"]*)" vouches for "([^"]*)" with weight (\d+)$`, steps.vouchesFor)
	ctx.Step(`^"([^"]*)" revokes the vouch for "([^"]*)"$`, steps.revokesVouch)
	ctx.Step(`^the trust score of "([^"]*)" should be (\d+)$`, steps.trustScoreShouldBe)
	ctx.Step(`^"([^"]*)" should be verified$`, steps.shouldBeVerified)
	ctx.Step(`^"([^"]*)" should not be verified$`, steps.shouldNotBeVerified)
}

type trustSteps struct {
	tc TestContext
}

func (s *trustSteps) vouchesFor(ctx context.Context, voucher, vouchee string, weight int) error {
	body := map[string]any{"vouchee": s.tc.Actor(vouchee), "weight": weight}
	if err := s.tc.Do(ctx, http.MethodPost, "/vouches", voucher, body); err != nil {
		return err
	}
	return s.tc.ExpectStatus(http.StatusCreated)
}

func (s *trustSteps) revokesVouch(ctx context.Context, voucher, vouchee string) error {
	if err := s.tc.Do(ctx, http.MethodDelete, "/vouches/"+s.tc.Actor(vouchee), voucher, nil); err != nil {
		return err
	}
	return s.tc.ExpectStatus(http.StatusNoContent)
}

type profile struct {
	Score    uint64 `json:"trust_score"`
	Verified bool   `json:"verified"`
}

func (s *trustSteps) profile(ctx context.Context, actor string) (profile, error) {
	var out profile
	if err := s.tc.GET(ctx, "/trust/"+s.tc.Actor(actor)); err != nil {
		return out, err
	}
	if err := s.tc.ExpectStatus(http.StatusOK); err != nil {
		return out, err
	}
	return out, s.tc.Decode(&out)
}

func (s *trustSteps) trustScoreShouldBe(ctx context.Context, actor string, score uint64) error {
	p, err := s.profile(ctx, actor)
	if err != nil {
		return err
	}
	if p.Score != score {
		return fmt.Errorf("expected trust score %d for %s, got %d", score, actor, p.Score)
	}
	return nil
}

func (s *trustSteps) shouldBeVerified(ctx context.Context, actor string) error {
	p, err := s.profile(ctx, actor)
	if err != nil {
		return err
	}
	if !p.Verified {
		return fmt.Errorf("%s is not verified (score %d)", actor, p.Score)
	}
	return nil
}

func (s *trustSteps) shouldNotBeVerified(ctx context.Context, actor string) error {
	p, err := s.profile(ctx, actor)
	if err != nil {
		return err
	}
	if p.Verified {
		return fmt.Errorf("%s is verified (score %d)", actor, p.Score)
	}
	return nil
}
