// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"unicode"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Password constraints beyond what the JSON schema expresses.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// NewAccount is the input to Directory.Create.
type NewAccount struct {
	Email             string `json:"email" jsonschema:"format=email,maxLength=255"`
	Handle            string `json:"nickname,omitempty" jsonschema:"minLength=3,maxLength=50,pattern=^[A-Za-z0-9_-]+$"`
	Password          string `json:"password" jsonschema:"minLength=8,maxLength=128"`
	FirstName         string `json:"first_name,omitempty" jsonschema:"maxLength=100"`
	LastName          string `json:"last_name,omitempty" jsonschema:"maxLength=100"`
	Bio               string `json:"bio,omitempty" jsonschema:"maxLength=500"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty" jsonschema:"format=uri,maxLength=255"`
	LinkedInURL       string `json:"linkedin_profile_url,omitempty" jsonschema:"format=uri,maxLength=255"`
	GitHubURL         string `json:"github_profile_url,omitempty" jsonschema:"format=uri,maxLength=255"`
}

// AccountUpdate is the input to Directory.Update. Nil fields are left untouched.
type AccountUpdate struct {
	Email             *string `json:"email,omitempty" jsonschema:"format=email,maxLength=255"`
	Handle            *string `json:"nickname,omitempty" jsonschema:"minLength=3,maxLength=50,pattern=^[A-Za-z0-9_-]+$"`
	Password          *string `json:"password,omitempty" jsonschema:"minLength=8,maxLength=128"`
	FirstName         *string `json:"first_name,omitempty" jsonschema:"maxLength=100"`
	LastName          *string `json:"last_name,omitempty" jsonschema:"maxLength=100"`
	Bio               *string `json:"bio,omitempty" jsonschema:"maxLength=500"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty" jsonschema:"format=uri,maxLength=255"`
	LinkedInURL       *string `json:"linkedin_profile_url,omitempty" jsonschema:"format=uri,maxLength=255"`
	GitHubURL         *string `json:"github_profile_url,omitempty" jsonschema:"format=uri,maxLength=255"`
	IsProfessional    *bool   `json:"is_professional,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u AccountUpdate) Empty() bool {
	return u == AccountUpdate{}
}

var clearableURLFields = []string{"profile_picture_url", "linkedin_profile_url", "github_profile_url"}

// JSONSchemaExtend lets an update clear a profile URL with "" while any
// non-empty value must still be a URI.
func (AccountUpdate) JSONSchemaExtend(s *jsonschema.Schema) {
	empty := uint64(0)
	for _, name := range clearableURLFields {
		prop, ok := s.Properties.Get(name)
		if !ok {
			continue
		}
		prop.AnyOf = []*jsonschema.Schema{
			{Format: prop.Format, MaxLength: prop.MaxLength},
			{MaxLength: &empty},
		}
		prop.Format = ""
		prop.MaxLength = nil
	}
}

// Schema identifiers.
const (
	CreateSchemaID = "https://roster.dev/schemas/account-create.schema.json"
	UpdateSchemaID = "https://roster.dev/schemas/account-update.schema.json"
)

type compiledSchema struct {
	once   sync.Once
	schema *jschema.Schema
	err    error
}

var (
	createSchema compiledSchema
	updateSchema compiledSchema
)

// GenerateCreateSchema returns the JSON Schema for NewAccount.
func GenerateCreateSchema() ([]byte, error) {
	return generateSchema(&NewAccount{}, CreateSchemaID, "Roster account creation",
		"Payload accepted when registering a new account")
}

// GenerateUpdateSchema returns the JSON Schema for AccountUpdate.
func GenerateUpdateSchema() ([]byte, error) {
	return generateSchema(&AccountUpdate{}, UpdateSchemaID, "Roster account update",
		"Partial payload accepted when updating an account")
}

func generateSchema(v any, id, title, description string) ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(v)
	schema.ID = jsonschema.ID(id)
	schema.Title = title
	schema.Description = description

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").With("schema", id).Wrap(err)
	}
	return data, nil
}

func (c *compiledSchema) get(generate func() ([]byte, error), id string) (*jschema.Schema, error) {
	c.once.Do(func() {
		raw, err := generate()
		if err != nil {
			c.err = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			c.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", id).Wrap(err)
			return
		}
		compiler := jschema.NewCompiler()
		compiler.AssertFormat()
		if err := compiler.AddResource(id, doc); err != nil {
			c.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", id).Wrap(err)
			return
		}
		c.schema, c.err = compiler.Compile(id)
		if c.err != nil {
			c.err = oops.Code("SCHEMA_COMPILE_FAILED").With("schema", id).Wrap(c.err)
		}
	})
	return c.schema, c.err
}

// ValidateNewAccount checks a creation payload against the creation schema and
// the password rules.
func ValidateNewAccount(in NewAccount) error {
	sch, err := createSchema.get(GenerateCreateSchema, CreateSchemaID)
	if err != nil {
		return err
	}
	if err := validateAgainst(sch, in); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// ValidateAccountUpdate checks a partial update against the update schema and,
// when present, the password rules.
func ValidateAccountUpdate(in AccountUpdate) error {
	sch, err := updateSchema.get(GenerateUpdateSchema, UpdateSchemaID)
	if err != nil {
		return err
	}
	if err := validateAgainst(sch, in); err != nil {
		return err
	}
	if in.Password != nil {
		return ValidatePassword(*in.Password)
	}
	return nil
}

func validateAgainst(sch *jschema.Schema, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errValidation("payload", err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errValidation("payload", err)
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code(CodeValidationFailed).
			With("field", "payload").
			Wrapf(err, "schema validation failed")
	}
	return nil
}

// ValidatePassword enforces length and character-class rules:
// - Length: MinPasswordLength to MaxPasswordLength characters
// - At least one upper-case letter, one lower-case letter and one digit
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return errValidation("password", fmt.Errorf(
			"password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength))
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return errValidation("password", fmt.Errorf(
			"password must contain an upper-case letter, a lower-case letter and a digit"))
	}
	return nil
}
