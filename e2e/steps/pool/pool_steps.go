package pool

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
	Remember(key, value string)
	Recall(key string) string
	Decode(v any) error
	ExpectStatus(want int) error
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &poolSteps{tc: tc}

	ctx.Step(`^"([^"]*)" creates a pool "([^"]*)" with contribution (\d+), (\d+) members and (\d+) bps ujrah$`, steps.createsPool)
	ctx.Step(`^"([^"]*)" creates a vouched pool "([^"]*)" with contribution (\d+), (\d+) members and minimum score (\d+)$`, steps.createsVouchedPool)
	ctx.Step(`^"([^"]*)" joins the pool$`, steps.joinsPool)
	ctx.Step(`^"([^"]*)" tries to join the pool$`, steps.triesToJoinPool)
	ctx.Step(`^"([^"]*)" contributes to the pool$`, steps.contributes)
	ctx.Step(`^"([^"]*)" tries to contribute to the pool$`, steps.triesToContribute)
	ctx.Step(`^the pool state should be "([^"]*)"$`, steps.poolStateShouldBe)
	ctx.Step(`^the pool should be in cycle (\d+)$`, steps.poolCycleShouldBe)
	ctx.Step(`^cycle (\d+) should have paid (\d+) to "([^"]*)" with fee (\d+)$`, steps.cycleShouldHavePaid)
}

type poolSteps struct {
	tc TestContext
}

type createRequest struct {
	Name                 string `json:"name"`
	ContributionAmount   uint64 `json:"contribution_amount"`
	MaxMembers           int    `json:"max_members"`
	CycleDurationSeconds int64  `json:"cycle_duration_seconds"`
	UjrahRateBps         uint32 `json:"ujrah_rate_bps"`
	RequiresVouching     bool   `json:"requires_vouching"`
	MinVouchScore        uint64 `json:"min_vouch_score"`
}

const weekSeconds = 7 * 24 * 60 * 60

func (s *poolSteps) createsPool(ctx context.Context, creator, name string, amount uint64, members int, bps uint32) error {
	return s.create(ctx, creator, createRequest{
		Name:                 name,
		ContributionAmount:   amount,
		MaxMembers:           members,
		CycleDurationSeconds: weekSeconds,
		UjrahRateBps:         bps,
	})
}

func (s *poolSteps) createsVouchedPool(ctx context.Context, creator, name string, amount uint64, members int, score uint64) error {
	return s.create(ctx, creator, createRequest{
		Name:                 name,
		ContributionAmount:   amount,
		MaxMembers:           members,
		CycleDurationSeconds: weekSeconds,
		RequiresVouching:     true,
		MinVouchScore:        score,
	})
}

func (s *poolSteps) create(ctx context.Context, creator string, req createRequest) error {
	if err := s.tc.Do(ctx, http.MethodPost, "/pools", creator, req); err != nil {
		return err
	}
	if err := s.tc.ExpectStatus(http.StatusCreated); err != nil {
		return err
	}
	var resp struct {
		PoolID         string `json:"pool_id"`
		CustodyAddress string `json:"custody_address"`
	}
	if err := s.tc.Decode(&resp); err != nil {
		return err
	}
	s.tc.Remember("pool_id", resp.PoolID)
	s.tc.Remember("custody_address", resp.CustodyAddress)
	return nil
}

func (s *poolSteps) path(suffix string) string {
	return "/pools/" + s.tc.Recall("pool_id") + suffix
}

func (s *poolSteps) joinsPool(ctx context.Context, actor string) error {
	if err := s.triesToJoinPool(ctx, actor); err != nil {
		return err
	}
	return s.tc.ExpectStatus(http.StatusCreated)
}

func (s *poolSteps) triesToJoinPool(ctx context.Context, actor string) error {
	return s.tc.Do(ctx, http.MethodPost, s.path("/join"), actor, nil)
}

func (s *poolSteps) contributes(ctx context.Context, actor string) error {
	if err := s.triesToContribute(ctx, actor); err != nil {
		return err
	}
	return s.tc.ExpectStatus(http.StatusOK)
}

func (s *poolSteps) triesToContribute(ctx context.Context, actor string) error {
	return s.tc.Do(ctx, http.MethodPost, s.path("/contributions"), actor, nil)
}

type info struct {
	State        string `json:"state"`
	CurrentCycle int    `json:"current_cycle"`
}

func (s *poolSteps) info(ctx context.Context) (info, error) {
	var out info
	if err := s.tc.GET(ctx, s.path("/info")); err != nil {
		return out, err
	}
	if err := s.tc.ExpectStatus(http.StatusOK); err != nil {
		return out, err
	}
	return out, s.tc.Decode(&out)
}

func (s *poolSteps) poolStateShouldBe(ctx context.Context, state string) error {
	got, err := s.info(ctx)
	if err != nil {
		return err
	}
	if got.State != state {
		return fmt.Errorf("expected pool state %q, got %q", state, got.State)
	}
	return nil
}

func (s *poolSteps) poolCycleShouldBe(ctx context.Context, cycle int) error {
	got, err := s.info(ctx)
	if err != nil {
		return err
	}
	if got.CurrentCycle != cycle {
		return fmt.Errorf("expected cycle %d, got %d", cycle, got.CurrentCycle)
	}
	return nil
}

func (s *poolSteps) cycleShouldHavePaid(ctx context.Context, cycle int, payout uint64, recipient string, fee uint64) error {
	if err := s.tc.GET(ctx, s.path("/settlements")); err != nil {
		return err
	}
	if err := s.tc.ExpectStatus(http.StatusOK); err != nil {
		return err
	}
	var resp struct {
		Settlements []struct {
			Cycle     int    `json:"cycle"`
			Recipient string `json:"recipient"`
			Fee       uint64 `json:"fee"`
			Payout    uint64 `json:"payout"`
		} `json:"settlements"`
	}
	if err := s.tc.Decode(&resp); err != nil {
		return err
	}
	for _, st := range resp.Settlements {
		if st.Cycle != cycle {
			continue
		}
		if st.Recipient != s.tc.Actor(recipient) || st.Payout != payout || st.Fee != fee {
			return fmt.Errorf("cycle %d settled %d (fee %d) to %s", cycle, st.Payout, st.Fee, st.Recipient)
		}
		return nil
	}
	return fmt.Errorf("cycle %d has not settled", cycle)
}
