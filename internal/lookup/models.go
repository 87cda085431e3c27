package lookup

import (
	"errors"

	"crm-telephony/internal/calls"
)

var ErrInvalidPhone = errors.New("lookup: phone has no digits")

// Schema names one of the two lead tables. They share no foreign key.
type Schema string

const (
	SchemaCurrent Schema = "current"
	SchemaLegacy  Schema = "legacy"
)

// LeadRef points at a lead in exactly one schema.
type LeadRef struct {
	Schema Schema
	ID     int64
}

// CurrentLead is a row of the leads table. Category and source are plain text
// and the scheduler name comes from a join.
type CurrentLead struct {
	ID            int64
	Name          string
	Stage         string
	Category      string
	Source        string
	SchedulerID   *int64
	SchedulerName string
	Phone         string
	Mobile        string
}

// LegacyLead is a row of legacy_leads with its lookup-table names resolved.
// The scheduler is only an id; its name is fetched separately.
type LegacyLead struct {
	ID          int64
	Name        string
	Stage       string
	Category    string
	Source      string
	SchedulerID *int64
	Phone       string
	Mobile      string
}

// LeadView is the unified lead shape returned to callers regardless of schema.
type LeadView struct {
	ID            int64  `json:"id"`
	Schema        Schema `json:"schema"`
	Name          string `json:"name"`
	Stage         string `json:"stage,omitempty"`
	Category      string `json:"category,omitempty"`
	Source        string `json:"source,omitempty"`
	SchedulerID   *int64 `json:"scheduler_id,omitempty"`
	SchedulerName string `json:"scheduler_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Mobile        string `json:"mobile,omitempty"`
}

type Contact struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	Mobile           string `json:"mobile,omitempty"`
	AdditionalPhones string `json:"additional_phones,omitempty"`
}

// Result is the CTI screen-pop payload. A miss is Found=false with empty
// slices, never an error.
type Result struct {
	Found       bool          `json:"found"`
	Phone       string        `json:"phone"`
	Leads       []LeadView    `json:"leads"`
	Contact     *Contact      `json:"contact,omitempty"`
	RecentCalls []calls.Entry `json:"recent_calls"`
}

func currentView(l CurrentLead) LeadView {
	return LeadView{
		ID:            l.ID,
		Schema:        SchemaCurrent,
		Name:          l.Name,
		Stage:         l.Stage,
		Category:      l.Category,
		Source:        l.Source,
		SchedulerID:   l.SchedulerID,
		SchedulerName: l.SchedulerName,
		Phone:         l.Phone,
		Mobile:        l.Mobile,
	}
}

func legacyView(l LegacyLead, names map[int64]string) LeadView {
	v := LeadView{
		ID:          l.ID,
		Schema:      SchemaLegacy,
		Name:        l.Name,
		Stage:       l.Stage,
		Category:    l.Category,
		Source:      l.Source,
		SchedulerID: l.SchedulerID,
		Phone:       l.Phone,
		Mobile:      l.Mobile,
	}
	if l.SchedulerID != nil {
		v.SchedulerName = names[*l.SchedulerID]
	}
	return v
}

// refSet deduplicates lead refs per schema, keeping first-seen order.
type refSet struct {
	seen map[LeadRef]struct{}
	ids  map[Schema][]int64
}

func newRefSet() *refSet {
	return &refSet{seen: map[LeadRef]struct{}{}, ids: map[Schema][]int64{}}
}

func (s *refSet) add(refs ...LeadRef) {
	for _, r := range refs {
		if _, ok := s.seen[r]; ok {
			continue
		}
		s.seen[r] = struct{}{}
		s.ids[r.Schema] = append(s.ids[r.Schema], r.ID)
	}
}

func (s *refSet) empty() bool { return len(s.seen) == 0 }

func (s *refSet) of(schema Schema) []int64 { return s.ids[schema] }
