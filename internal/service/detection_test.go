package service

import (
	"context"
	"testing"
	"time"

	"vigil/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBruteForceRuleBelowThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "target@example.com", "Tar", "Get")
	ip := strPtr("1.2.3.4")

	var latest *entity.AuditEvent
	for i := 0; i < 4; i++ {
		latest = f.createEvent(t, &user.ID, entity.EventLoginFailure, ip,
			f.clock.now.Add(-time.Duration(i)*time.Minute))
	}

	created := f.engine.Evaluate(ctx, latest)
	assert.False(t, created)

	alerts, err := f.alertSvc.List(ctx, "", "", "")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestBruteForceRuleAtThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "target@example.com", "Tar", "Get")
	ip := strPtr("1.2.3.4")

	var fifth *entity.AuditEvent
	for i := 0; i < 5; i++ {
		fifth = f.createEvent(t, &user.ID, entity.EventLoginFailure, ip,
			f.clock.now.Add(-time.Duration(i)*30*time.Second))
	}

	created := f.engine.Evaluate(ctx, fifth)
	assert.True(t, created)

	alerts, err := f.alertSvc.List(ctx, "", "", "")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, entity.AlertBruteForce, alert.Type)
	assert.Equal(t, entity.SeverityHigh, alert.Severity)
	assert.Equal(t, entity.AlertOpen, alert.Status)
	require.NotNil(t, alert.AuditEventID)
	assert.Equal(t, fifth.ID, *alert.AuditEventID)
	require.NotNil(t, alert.UserID)
	assert.Equal(t, user.ID, *alert.UserID)
	assert.Contains(t, alert.Description, "5 failed login attempts")
	assert.Contains(t, alert.Description, "1.2.3.4")
}

func TestBruteForceRuleWindowBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ip := strPtr("9.9.9.9")

	// Four failures just inside the window plus one just outside: the
	// outside event must not push the count over the threshold.
	f.createEvent(t, nil, entity.EventLoginFailure, ip, f.clock.now.Add(-10*time.Minute-time.Second))
	for i := 0; i < 3; i++ {
		f.createEvent(t, nil, entity.EventLoginFailure, ip,
			f.clock.now.Add(-time.Duration(i)*time.Minute))
	}
	inside := f.createEvent(t, nil, entity.EventLoginFailure, ip, f.clock.now.Add(-9*time.Minute-59*time.Second))

	created := f.engine.Evaluate(ctx, inside)
	assert.False(t, created)
}

func TestBruteForceRuleScopesByUserAndIP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "victim@example.com", "Vic", "Tim")

	// Failures for the same user from a different IP do not count when
	// the triggering event carries its own source IP.
	for i := 0; i < 4; i++ {
		f.createEvent(t, &user.ID, entity.EventLoginFailure, strPtr("5.5.5.5"),
			f.clock.now.Add(-time.Duration(i)*time.Minute))
	}
	trigger := f.createEvent(t, &user.ID, entity.EventLoginFailure, strPtr("6.6.6.6"), f.clock.now)

	created := f.engine.Evaluate(ctx, trigger)
	assert.False(t, created)
}

func TestBruteForceRuleRetriggersWithoutSuppression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ip := strPtr("1.2.3.4")

	var latest *entity.AuditEvent
	for i := 0; i < 5; i++ {
		latest = f.createEvent(t, nil, entity.EventLoginFailure, ip,
			f.clock.now.Add(-time.Duration(i)*20*time.Second))
	}
	require.True(t, f.engine.Evaluate(ctx, latest))

	sixth := f.createEvent(t, nil, entity.EventLoginFailure, ip, f.clock.now)
	require.True(t, f.engine.Evaluate(ctx, sixth))

	alerts, err := f.alertSvc.List(ctx, "", "", string(entity.AlertBruteForce))
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestEngineIgnoresNonTriggeringEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.createEvent(t, nil, entity.EventLoginSuccess, strPtr("1.2.3.4"), f.clock.now)

	assert.False(t, f.engine.Evaluate(ctx, event))
}

func TestEngineSwallowsRuleErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	engine := NewEngine(f.alertSvc, nil, failingRule{})
	event := f.createEvent(t, nil, entity.EventLoginFailure, nil, f.clock.now)

	assert.NotPanics(t, func() {
		assert.False(t, engine.Evaluate(ctx, event))
	})
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Triggers(entity.AuditEventType) bool { return true }

func (failingRule) Evaluate(context.Context, *entity.AuditEvent) (*entity.Alert, error) {
	return nil, assert.AnError
}
