package trial

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan maps an application-level plan to the processor's billing plan.
type Plan struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	ProcessorPlanID string `yaml:"processor_plan_id"`
	TrialDays       int    `yaml:"trial_days"`
}

// PlansListSource defines how plans are loaded into the trial service.
type PlansListSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// StaticPlans is a PlansListSource over a fixed in-memory set.
type StaticPlans map[string]Plan

func (p StaticPlans) Load(ctx context.Context) (map[string]Plan, error) {
	return p, nil
}

// YAMLPlans loads the plan catalog from a YAML file of the form:
//
//	plans:
//	  - id: trial-monthly
//	    name: Trial Monthly
//	    processor_plan_id: P-5ML4271244454362WXNWU5NQ
//	    trial_days: 7
type YAMLPlans struct {
	Path string
}

func (p YAMLPlans) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, plan := range doc.Plans {
		plans[plan.ID] = plan
	}
	return plans, nil
}

// validatePlans ensures plan configurations are internally consistent
// before the service starts accepting subscribe requests.
func validatePlans(plans map[string]Plan) error {
	for planID, plan := range plans {
		if plan.ID != planID {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", planID, plan.ID))
		}
		if plan.ProcessorPlanID == "" {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has no processor plan id", planID))
		}
		if plan.TrialDays < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative trial days: %d", planID, plan.TrialDays))
		}
	}
	return nil
}
