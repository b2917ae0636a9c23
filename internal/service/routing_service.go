package service

import (
	"context"
	"log"
	"strings"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// RoutingService picks a target group for a contact that has no prior
// conversation, by walking the tenant's ordered match rules.
type RoutingService struct {
	RuleRepo repository.RoutingRuleRepositoryInterface
}

// ResolveGroup evaluates the tenant's active rules (tenant-wide or scoped to
// the inbound gateway) in priority order; the first match wins. When no rule
// matches it falls back to the contact's default group, then the gateway's
// fallback group. Returns ErrNoRouteFound when nothing resolves, which is
// fatal for the inbound message.
func (s *RoutingService) ResolveGroup(ctx context.Context, gateway *model.Gateway, contact *model.Contact, body string) (int, error) {
	rules, err := s.RuleRepo.ListActive(ctx, gateway.TenantID, gateway.ID)
	if err != nil {
		return 0, err
	}

	for _, rule := range rules {
		if ruleMatches(rule, body) {
			return rule.TargetGroupID, nil
		}
	}

	if contact != nil && contact.DefaultGroupID != nil {
		return *contact.DefaultGroupID, nil
	}
	if gateway.FallbackGroupID != nil {
		return *gateway.FallbackGroupID, nil
	}
	return 0, apperrors.ErrNoRouteFound
}

func ruleMatches(rule model.RoutingRule, body string) bool {
	lowerBody := strings.ToLower(body)
	lowerPattern := strings.ToLower(rule.Pattern)

	switch rule.Kind {
	case model.RuleKeyword:
		return lowerPattern != "" && strings.Contains(lowerBody, lowerPattern)
	case model.RulePrefix:
		return lowerPattern != "" && strings.HasPrefix(lowerBody, lowerPattern)
	case model.RuleFallback:
		// Pattern is ignored; a fallback rule always matches.
		return true
	default:
		// Unknown kind in the database; skip rather than misroute.
		log.Printf("[routing] skipping rule %d with unknown kind %q", rule.ID, rule.Kind)
		return false
	}
}
