// Package bunadapter stores Casbin policy lines in the casbin_rules table
// through the shared *bun.DB pool. It works against both SQLite and the
// Postgres public schema.
package bunadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"
)

const maxFields = 6

// CasbinRule is one policy (p) or grouping (g) line. All columns form the
// primary key so re-inserting a rule is a no-op.
type CasbinRule struct {
	bun.BaseModel `bun:"table:casbin_rules,alias:cr"`

	Ptype string `bun:"ptype,pk,type:varchar(100),notnull"`
	V0    string `bun:"v0,pk,type:varchar(255)"` // role name, or user ID for groupings
	V1    string `bun:"v1,pk,type:varchar(255)"` // object, or role name for groupings
	V2    string `bun:"v2,pk,type:varchar(255)"` // action
	V3    string `bun:"v3,pk,type:varchar(255)"`
	V4    string `bun:"v4,pk,type:varchar(255)"`
	V5    string `bun:"v5,pk,type:varchar(255)"`
}

// NewRule builds a rule from a policy type and its values.
func NewRule(ptype string, values ...string) *CasbinRule {
	r := &CasbinRule{Ptype: ptype}
	fields := r.fields()
	for i := 0; i < len(values) && i < maxFields; i++ {
		*fields[i] = values[i]
	}
	return r
}

func (r *CasbinRule) fields() [maxFields]*string {
	return [maxFields]*string{&r.V0, &r.V1, &r.V2, &r.V3, &r.V4, &r.V5}
}

// Values returns the rule values with trailing empty fields dropped.
func (r *CasbinRule) Values() []string {
	values := []string{r.V0, r.V1, r.V2, r.V3, r.V4, r.V5}
	last := len(values) - 1
	for last >= 0 && values[last] == "" {
		last--
	}
	return values[:last+1]
}

func (r *CasbinRule) String() string {
	return strings.Join(append([]string{r.Ptype}, r.Values()...), ", ")
}

// where restricts q to rows equal to r on every non-empty column.
func (r *CasbinRule) where(q bun.QueryBuilder) bun.QueryBuilder {
	q = q.Where("ptype = ?", r.Ptype)
	for i, v := range r.Values() {
		if v != "" {
			q = q.Where("? = ?", bun.Ident(fmt.Sprintf("v%d", i)), v)
		}
	}
	return q
}

// Adapter implements persist.Adapter on top of bun.
type Adapter struct {
	db *bun.DB
}

// NewAdapter creates an Adapter using the existing connection pool. The
// casbin_rules table must already exist.
func NewAdapter(db *bun.DB) *Adapter {
	return &Adapter{db: db}
}

// LoadPolicy loads every stored rule into the model.
func (a *Adapter) LoadPolicy(m model.Model) error {
	var rules []*CasbinRule
	if err := a.db.NewSelect().Model(&rules).Scan(context.Background()); err != nil {
		return fmt.Errorf("load casbin policy: %w", err)
	}

	for _, r := range rules {
		values := r.Values()
		if len(values) == 0 || r.Ptype == "" {
			continue
		}
		if err := m.AddPolicy(r.Ptype[:1], r.Ptype, values); err != nil {
			return fmt.Errorf("load casbin rule %q: %w", r.String(), err)
		}
	}
	return nil
}

// SavePolicy replaces the stored rules with the model's rules.
func (a *Adapter) SavePolicy(m model.Model) error {
	var rules []*CasbinRule
	for _, sec := range []string{"p", "g"} {
		for ptype, assertion := range m[sec] {
			for _, rule := range assertion.Policy {
				rules = append(rules, NewRule(ptype, rule...))
			}
		}
	}

	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*CasbinRule)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear casbin policy: %w", err)
		}
		return insertRules(ctx, tx, rules)
	})
}

// AddPolicy stores a single rule.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	return a.AddPolicies("", ptype, [][]string{rule})
}

// AddPolicies stores several rules in one transaction.
func (a *Adapter) AddPolicies(_ string, ptype string, rules [][]string) error {
	lines := make([]*CasbinRule, 0, len(rules))
	for _, rule := range rules {
		lines = append(lines, NewRule(ptype, rule...))
	}
	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		return insertRules(ctx, tx, lines)
	})
}

// RemovePolicy deletes a single rule.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	return a.RemovePolicies("", ptype, [][]string{rule})
}

// RemovePolicies deletes several rules in one transaction.
func (a *Adapter) RemovePolicies(_ string, ptype string, rules [][]string) error {
	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		for _, rule := range rules {
			line := NewRule(ptype, rule...)
			q := tx.NewDelete().Model((*CasbinRule)(nil))
			line.where(q.QueryBuilder())
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("remove casbin rule %q: %w", line.String(), err)
			}
		}
		return nil
	})
}

// RemoveFilteredPolicy deletes rules whose fields starting at fieldIndex
// match fieldValues. Empty values match anything.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	q := a.db.NewDelete().Model((*CasbinRule)(nil)).Where("ptype = ?", ptype)
	for i, v := range fieldValues {
		col := fieldIndex + i
		if v == "" || col < 0 || col >= maxFields {
			continue
		}
		q = q.Where("? = ?", bun.Ident(fmt.Sprintf("v%d", col)), v)
	}
	if _, err := q.Exec(context.Background()); err != nil {
		return fmt.Errorf("remove filtered casbin policy: %w", err)
	}
	return nil
}

func insertRules(ctx context.Context, tx bun.Tx, rules []*CasbinRule) error {
	for _, r := range rules {
		if _, err := tx.NewInsert().Model(r).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("insert casbin rule %q: %w", r.String(), err)
		}
	}
	return nil
}
