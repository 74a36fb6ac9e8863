package analytics

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Source string

const (
	SourceEvents    Source = "events"
	SourceCompleted Source = "completed"
)

// Filter matches a row when the cell equals any of Values.
type Filter struct {
	Column string   `yaml:"column" validate:"required"`
	Values []string `yaml:"values" validate:"required,min=1"`
}

// Membership keeps rows whose Column value appears among the SourceColumn values of
// the rows matching Filters in the same source table.
type Membership struct {
	Column       string   `yaml:"column" validate:"required"`
	SourceColumn string   `yaml:"source_column" validate:"required"`
	Filters      []Filter `yaml:"filters" validate:"required,min=1,dive"`
}

type Category struct {
	Output          string        `yaml:"output" validate:"required"`
	Source          Source        `yaml:"source" validate:"required,oneof=events completed"`
	Filters         []Filter      `yaml:"filters" validate:"dive"`
	Membership      *Membership   `yaml:"membership" validate:"omitempty"`
	TimestampColumn string        `yaml:"timestamp_column" validate:"required"`
	Offset          time.Duration `yaml:"offset"`
	ActorColumn     string        `yaml:"actor_column" validate:"required"`
	UserColumn      string        `yaml:"user_column" validate:"required"`
}

// Profile is one report layout: the categories merged in order and the output columns.
type Profile struct {
	Name       string     `yaml:"name" validate:"required"`
	Title      string     `yaml:"title"`
	Categories []Category `yaml:"categories" validate:"required,min=1,dive"`
	Columns    []string   `yaml:"columns" validate:"required,min=1"`
}

var validate = validator.New()

func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidProfile, p.Name, err)
	}

	outputs := make(map[string]bool, len(p.Categories))
	for _, c := range p.Categories {
		if isFixedColumn(c.Output) {
			return fmt.Errorf("%w %q: category output %q clashes with a fixed column", ErrInvalidProfile, p.Name, c.Output)
		}
		if outputs[c.Output] {
			return fmt.Errorf("%w %q: duplicate category output %q", ErrInvalidProfile, p.Name, c.Output)
		}
		outputs[c.Output] = true
	}

	seen := make(map[string]bool, len(p.Columns))
	for _, col := range p.Columns {
		if seen[col] {
			return fmt.Errorf("%w %q: duplicate column %q", ErrInvalidProfile, p.Name, col)
		}
		seen[col] = true
		if !isFixedColumn(col) && !outputs[col] {
			return fmt.Errorf("%w %q: column %q is not produced by any category", ErrInvalidProfile, p.Name, col)
		}
	}
	for _, fixed := range []string{ColumnActorID, ColumnDate, ColumnHour} {
		if !seen[fixed] {
			return fmt.Errorf("%w %q: column %q is required", ErrInvalidProfile, p.Name, fixed)
		}
	}
	for out := range outputs {
		if !seen[out] {
			return fmt.Errorf("%w %q: category output %q is missing from columns", ErrInvalidProfile, p.Name, out)
		}
	}

	return nil
}

// CountColumns returns the category outputs in column order.
func (p Profile) CountColumns() []string {
	out := make([]string, 0, len(p.Categories))
	for _, col := range p.Columns {
		if !isFixedColumn(col) {
			out = append(out, col)
		}
	}
	return out
}

func (p Profile) NeedsCompleted() bool {
	for _, c := range p.Categories {
		if c.Source == SourceCompleted {
			return true
		}
	}
	return false
}

func isFixedColumn(col string) bool {
	switch col {
	case ColumnActorID, ColumnName, ColumnType, ColumnDate, ColumnHour:
		return true
	}
	return false
}

const (
	ProfileHourly        = "hourly"
	ProfileHourlyAccepts = "hourly_accepts"
)

const istOffset = 5*time.Hour + 30*time.Minute

// DefaultProfiles returns the built-in report layouts.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:  ProfileHourly,
			Title: "Hour Wise Astrologer Wise Chat Intakes and Completions",
			Categories: []Category{
				{
					Output:          "chat_completed",
					Source:          SourceEvents,
					Filters:         []Filter{{Column: "status", Values: []string{"COMPLETED"}}, {Column: "type", Values: []string{"FREE"}}},
					TimestampColumn: "createdAt",
					ActorColumn:     "astrologerId",
					UserColumn:      "userId",
				},
				{
					Output:          "paid_chats_completed",
					Source:          SourceEvents,
					Filters:         []Filter{{Column: "status", Values: []string{"COMPLETED"}}, {Column: "type", Values: []string{"PAID"}}},
					TimestampColumn: "createdAt",
					ActorColumn:     "astrologerId",
					UserColumn:      "userId",
				},
				{
					Output:          "chat_intake_requests",
					Source:          SourceEvents,
					Filters:         []Filter{{Column: "event_name", Values: []string{"chat_intake_submit"}}, {Column: "paid", Values: []string{"0"}}},
					TimestampColumn: "createdAt",
					ActorColumn:     "astrologerId",
					UserColumn:      "userId",
				},
			},
			Columns: []string{
				ColumnActorID, ColumnName, ColumnType, ColumnDate, ColumnHour,
				"chat_intake_requests", "chat_completed", "paid_chats_completed",
			},
		},
		{
			Name:  ProfileHourlyAccepts,
			Title: "Astrology Chat Data Processor",
			Categories: []Category{
				{
					Output:          "chat_intake_requests",
					Source:          SourceEvents,
					Filters:         []Filter{{Column: "event_name", Values: []string{"chat_intake_submit"}}},
					TimestampColumn: "event_time",
					Offset:          istOffset,
					ActorColumn:     "astrologerId",
					UserColumn:      "user_id",
				},
				{
					Output:  "chat_accepted",
					Source:  SourceEvents,
					Filters: []Filter{{Column: "event_name", Values: []string{"accept_chat"}}, {Column: "paid", Values: []string{"0"}}},
					Membership: &Membership{
						Column:       "clientId",
						SourceColumn: "user_id",
						Filters:      []Filter{{Column: "event_name", Values: []string{"chat_intake_submit"}}},
					},
					TimestampColumn: "event_time",
					Offset:          istOffset,
					ActorColumn:     "user_id",
					UserColumn:      "clientId",
				},
				{
					Output:          "chat_completed",
					Source:          SourceCompleted,
					Filters:         []Filter{{Column: "status", Values: []string{"COMPLETED"}}, {Column: "type", Values: []string{"FREE", "PAID"}}},
					TimestampColumn: "createdAt",
					ActorColumn:     "astrologerId",
					UserColumn:      "userId",
				},
				{
					Output:          "paid_chats_completed",
					Source:          SourceCompleted,
					Filters:         []Filter{{Column: "status", Values: []string{"COMPLETED"}}, {Column: "type", Values: []string{"PAID"}}},
					TimestampColumn: "createdAt",
					ActorColumn:     "astrologerId",
					UserColumn:      "userId",
				},
			},
			Columns: []string{
				ColumnActorID, ColumnName, ColumnType, ColumnDate, ColumnHour,
				"chat_intake_requests", "chat_accepted", "chat_completed", "paid_chats_completed",
			},
		},
	}
}

// Profiles is a validated set of report layouts keyed by name.
type Profiles struct {
	byName map[string]Profile
}

func NewProfiles(list ...Profile) (*Profiles, error) {
	p := &Profiles{byName: make(map[string]Profile, len(list))}
	for _, profile := range list {
		if err := p.Add(profile); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add validates and registers a profile, replacing one with the same name.
func (p *Profiles) Add(profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	p.byName[profile.Name] = profile
	return nil
}

func (p *Profiles) Get(name string) (Profile, error) {
	profile, ok := p.byName[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return profile, nil
}

func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles merges the profiles of a YAML document over the built-in ones.
func LoadProfiles(r io.Reader) (*Profiles, error) {
	profiles, err := NewProfiles(DefaultProfiles()...)
	if err != nil {
		return nil, err
	}

	var file profileFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}

	for _, profile := range file.Profiles {
		if err := profiles.Add(profile); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}
