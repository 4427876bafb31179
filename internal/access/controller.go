package access

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	sessiondomain "asset-registry/backend/internal/session/domain"
	telemetryotel "asset-registry/backend/internal/telemetry/otel"
)

// DefaultPolicy maps roles to scopes. It must define data.asset.access.scope as one of
// "public", "owner", "station", "all" or "deny".
//
//go:embed policy.rego
var DefaultPolicy string

const scopeQuery = "data.asset.access.scope"

// StationLookup returns the police station assigned to an identity, or "" if none.
type StationLookup interface {
	GetPoliceStation(ctx context.Context, identityID string) (string, error)
}

// Controller resolves a caller to a Predicate. It never returns an error: every failure denies.
type Controller struct {
	stations StationLookup
	query    rego.PreparedEvalQuery
	logger   *zap.Logger
	resolved *telemetryotel.Outcomes
}

// LoadPolicy returns the Rego source at path, or DefaultPolicy when path is empty.
func LoadPolicy(path string) (string, error) {
	if path == "" {
		return DefaultPolicy, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read access policy: %w", err)
	}
	return string(b), nil
}

// NewController compiles policy once. An empty policy uses DefaultPolicy.
func NewController(ctx context.Context, stations StationLookup, policy string, logger *zap.Logger) (*Controller, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pq, err := rego.New(
		rego.Query(scopeQuery),
		rego.Module("access.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}
	return &Controller{
		stations: stations,
		query:    pq,
		logger:   logger,
		resolved: telemetryotel.NewOutcomes("asset-registry/access", "access.resolve", "Access predicates resolved, by kind."),
	}, nil
}

// HealthCheck evaluates the policy for an anonymous caller and expects the public scope.
func (c *Controller) HealthCheck(ctx context.Context) error {
	scope, err := c.scope(ctx, nil)
	if err != nil {
		return err
	}
	if scope != "public" {
		return fmt.Errorf("access policy: anonymous scope is %q", scope)
	}
	return nil
}

// Resolve returns the predicate for p; nil means an anonymous caller. It is computed per call and
// never cached.
func (c *Controller) Resolve(ctx context.Context, p *sessiondomain.Principal) Predicate {
	pred := c.resolve(ctx, p)
	c.resolved.Add(ctx, string(pred.Kind), "OK")
	return pred
}

func (c *Controller) resolve(ctx context.Context, p *sessiondomain.Principal) Predicate {
	scope, err := c.scope(ctx, p)
	if err != nil {
		c.logger.Warn("access: policy evaluation failed, denying", zap.Error(err))
		return Predicate{Kind: DenyAll}
	}

	switch scope {
	case "public":
		if p != nil {
			// Authenticated callers never fall back to the anonymous view.
			break
		}
		return Predicate{Kind: PublicStolenOnly}
	case "owner":
		if p == nil || p.IdentityID == "" {
			break
		}
		return Predicate{Kind: OwnerScoped, IdentityID: p.IdentityID}
	case "station":
		if p == nil || p.IdentityID == "" || c.stations == nil {
			break
		}
		station, err := c.stations.GetPoliceStation(ctx, p.IdentityID)
		if err != nil {
			c.logger.Warn("access: station lookup failed, denying", zap.String("identity_id", p.IdentityID), zap.Error(err))
			break
		}
		if station == "" {
			break
		}
		return Predicate{Kind: StationScoped, Station: station}
	case "all":
		if p == nil || !p.Role.Privileged() {
			break
		}
		return Predicate{Kind: Unrestricted}
	}
	return Predicate{Kind: DenyAll}
}

func (c *Controller) scope(ctx context.Context, p *sessiondomain.Principal) (string, error) {
	input := map[string]interface{}{"authenticated": false, "role": "", "identity_id": ""}
	if p != nil {
		input["authenticated"] = true
		input["role"] = string(p.Role)
		input["identity_id"] = p.IdentityID
	}
	rs, err := c.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", fmt.Errorf("policy query returned no result")
	}
	scope, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("scope is %T, not string", rs[0].Expressions[0].Value)
	}
	return scope, nil
}
