package validation

import (
	"fmt"
	"strconv"

	errors "github.com/frahmantamala/guild-dashboard/internal"
)

// Discord caps guild names at 100 characters.
const MaxGuildNameLength = 100

type rule func(field, value string) *errors.ValidationError

type field struct {
	name  string
	value string
	rules []rule
}

// Builder collects field rules and reports every violation at once.
type Builder struct {
	fields []*field
}

func NewValidator() *Builder {
	return &Builder{}
}

// FieldRules is returned by Builder.Field so rules can be chained.
type FieldRules struct {
	f *field
}

func (b *Builder) Field(name, value string) *FieldRules {
	f := &field{name: name, value: value}
	b.fields = append(b.fields, f)
	return &FieldRules{f: f}
}

func (r *FieldRules) Required() *FieldRules {
	r.f.rules = append(r.f.rules, func(name, value string) *errors.ValidationError {
		if value != "" {
			return nil
		}
		return &errors.ValidationError{
			Field:   name,
			Message: name + " is required",
			Code:    string(errors.ErrCodeValidationFailed),
		}
	})
	return r
}

func (r *FieldRules) MaxLength(max int) *FieldRules {
	r.f.rules = append(r.f.rules, func(name, value string) *errors.ValidationError {
		if len(value) <= max {
			return nil
		}
		return &errors.ValidationError{
			Field:   name,
			Message: fmt.Sprintf("%s must not exceed %d characters", name, max),
			Code:    string(errors.ErrCodeValidationFailed),
		}
	})
	return r
}

// Snowflake requires a Discord id: 17 to 20 decimal digits that fit in a
// uint64. Empty values are left to Required.
func (r *FieldRules) Snowflake() *FieldRules {
	r.f.rules = append(r.f.rules, func(name, value string) *errors.ValidationError {
		if value == "" || IsSnowflake(value) {
			return nil
		}
		return &errors.ValidationError{
			Field:   name,
			Message: name + " must be a Discord snowflake id",
			Code:    string(errors.ErrCodeInvalidSnowflake),
		}
	})
	return r
}

// Validate runs every rule and returns nil when all pass.
func (b *Builder) Validate() *errors.AppError {
	var violations []errors.ValidationError
	for _, f := range b.fields {
		for _, check := range f.rules {
			if v := check(f.name, f.value); v != nil {
				violations = append(violations, *v)
			}
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
		WithDetails(errors.ValidationErrors{Errors: violations})
}

func IsSnowflake(s string) bool {
	if len(s) < 17 || len(s) > 20 {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func ValidateGuildID(guildID string) *errors.AppError {
	v := NewValidator()
	v.Field("guild_id", guildID).Required().Snowflake()
	return v.Validate()
}
