package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

/********** responses **********/

type questionnaireDTO struct {
	ID            string                `json:"id"`
	Kind          domain.Kind           `json:"kind"`
	HotelID       string                `json:"hotelId,omitempty"`
	RentalID      string                `json:"rentalId,omitempty"`
	CabinID       string                `json:"cabinId,omitempty"`
	OwnerID       string                `json:"ownerId"`
	StartDate     string                `json:"startDate"`
	EndDate       string                `json:"endDate"`
	WeekKey       domain.WeekKey        `json:"weekKey"`
	SubmittedAt   time.Time             `json:"submittedAt"`
	Notes         string                `json:"notes,omitempty"`
	Payload       domain.Payload        `json:"payload"`
	DomesticOcc   int                   `json:"domesticOccupancyPercent"`
	ForeignOcc    int                   `json:"foreignOccupancyPercent"`
	Provenance    string                `json:"provenanceSummary"`
	Establishment *domain.Establishment `json:"establishment,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func toDTO(q domain.Questionnaire) questionnaireDTO {
	d := questionnaireDTO{
		ID:            q.ID,
		Kind:          q.Kind,
		OwnerID:       q.OwnerID,
		StartDate:     q.StartDate.Format(dateLayout),
		EndDate:       q.EndDate.Format(dateLayout),
		WeekKey:       q.Week,
		SubmittedAt:   q.SubmittedAt,
		Notes:         q.Notes,
		Payload:       q.Payload,
		Establishment: q.Establishment,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
		Provenance:    domain.ProvenanceSummary(""),
	}
	if q.Payload != nil {
		t := q.Payload.Totals()
		d.DomesticOcc, d.ForeignOcc = t.DomesticOccupancy(), t.ForeignOccupancy()
		d.Provenance = domain.ProvenanceSummary(q.Payload.Provenance())
	}
	switch q.Kind {
	case domain.KindHotel:
		d.HotelID = q.EstablishmentID
	case domain.KindRental:
		d.RentalID = q.EstablishmentID
	case domain.KindCabin:
		d.CabinID = q.EstablishmentID
	}
	return d
}

func toDTOs(qs []domain.Questionnaire) []questionnaireDTO {
	out := make([]questionnaireDTO, 0, len(qs))
	for _, q := range qs {
		out = append(out, toDTO(q))
	}
	return out
}

type envelope struct {
	Results *int `json:"results,omitempty"`
	Data    any  `json:"data"`
}

func single(v any) envelope { return envelope{Data: v} }

func list(items []questionnaireDTO) envelope {
	n := len(items)
	return envelope{Results: &n, Data: items}
}

/********** requests **********/

type submitRequest struct {
	HotelID   string          `json:"hotelId"`
	RentalID  string          `json:"rentalId"`
	AirbnbID  string          `json:"airbnbId"`
	CabinID   string          `json:"cabinId"`
	CabanaID  string          `json:"cabanaId"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Payload   json.RawMessage `json:"payload"`
	Notes     *string         `json:"notes"`
}

type updateRequest struct {
	Payload json.RawMessage `json:"payload"`
	Notes   *string         `json:"notes"`
}

// decodeBody reads a single JSON object. Malformed JSON is a validation failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError(domain.Violation{Field: "body", Rule: "json", Message: "request body must be a JSON object"})
	}
	return nil
}

func (s submitRequest) toInput() (domain.SubmitInput, error) {
	var vs []domain.Violation
	in := domain.SubmitInput{Payload: s.Payload, Notes: s.Notes}

	type ref struct {
		kind domain.Kind
		id   string
	}
	var refs []ref
	for _, c := range []ref{
		{domain.KindHotel, s.HotelID},
		{domain.KindRental, s.RentalID},
		{domain.KindRental, s.AirbnbID},
		{domain.KindCabin, s.CabinID},
		{domain.KindCabin, s.CabanaID},
	} {
		if id := strings.TrimSpace(c.id); id != "" {
			refs = append(refs, ref{c.kind, id})
		}
	}
	switch len(refs) {
	case 1:
		in.Kind, in.EstablishmentID = refs[0].kind, refs[0].id
	case 0:
		vs = append(vs, domain.Violation{Field: "establishmentId", Rule: "required", Message: "one of hotelId, rentalId or cabinId is required"})
	default:
		vs = append(vs, domain.Violation{Field: "establishmentId", Rule: "exactly_one", Message: "only one of hotelId, rentalId or cabinId may be given"})
	}

	var v *domain.Violation
	if in.StartDate, v = parseDate("startDate", s.StartDate); v != nil {
		vs = append(vs, *v)
	}
	if in.EndDate, v = parseDate("endDate", s.EndDate); v != nil {
		vs = append(vs, *v)
	}
	if len(vs) > 0 {
		return in, domain.NewValidationError(vs...)
	}
	return in, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty is left
// zero for the service to report as missing.
func parseDate(field, s string) (time.Time, *domain.Violation) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, &domain.Violation{Field: field, Rule: "date", Message: field + " must be a YYYY-MM-DD date"}
}

/********** query parameters **********/

// query collects every malformed parameter before failing.
type query struct {
	r  *http.Request
	vs []domain.Violation
}

func newQuery(r *http.Request) *query { return &query{r: r} }

func (q *query) str(name string) string { return strings.TrimSpace(q.r.URL.Query().Get(name)) }

func (q *query) number(name string) int {
	s := q.str(name)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.vs = append(q.vs, domain.Violation{Field: name, Rule: "integer", Message: name + " must be an integer"})
		return 0
	}
	return n
}

func (q *query) kind(name string) domain.Kind {
	s := q.str(name)
	if s == "" {
		return ""
	}
	k, err := domain.ParseKind(s)
	if err != nil {
		q.vs = append(q.vs, domain.Violation{Field: name, Rule: "oneof", Message: "kind must be hotel, rental or cabin"})
	}
	return k
}

func (q *query) date(name string) time.Time {
	t, v := parseDate(name, q.str(name))
	if v != nil {
		q.vs = append(q.vs, *v)
	}
	return t
}

func (q *query) err() error {
	if len(q.vs) > 0 {
		return domain.NewValidationError(q.vs...)
	}
	return nil
}

func (q *query) listFilter() app.ListFilter {
	return app.ListFilter{
		Kind:  q.kind("kind"),
		Year:  q.number("year"),
		Month: q.number("month"),
		Limit: q.number("limit"),
	}
}

func (q *query) rangeFilter() app.RangeFilter {
	f := app.RangeFilter{Kind: q.kind("kind"), From: q.date("from"), To: q.date("to")}
	p, err := app.ParsePeriod(q.str("period"))
	if err != nil {
		q.vs = append(q.vs, domain.Violation{Field: "period", Rule: "oneof", Message: "period must be quarter, semester or year"})
	}
	f.Period = p
	return f
}
