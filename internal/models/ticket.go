package models

import (
	"encoding/json"
	"sort"
)

// Field names of the Ticket schema as they appear on the wire and in storage.
const (
	FieldID       = "id"
	FieldEventoID = "eventoId"
	FieldFecha    = "fecha"
	FieldHora     = "hora"
	FieldDuracion = "duracion"
	FieldPrecio   = "precio"
	FieldSilla    = "silla"
)

// NumericFields are the declared fields holding JSON numbers.
var NumericFields = map[string]bool{
	FieldEventoID: true,
	FieldHora:     true,
	FieldDuracion: true,
	FieldPrecio:   true,
	FieldSilla:    true,
}

// IsDeclared reports whether name is part of the fixed Ticket schema.
func IsDeclared(name string) bool {
	return name == FieldID || name == FieldFecha || NumericFields[name]
}

// Ticket is a stored ticket. Keys outside the declared schema live in Extra.
type Ticket struct {
	ID       string
	EventoID float64
	Fecha    string
	Hora     float64
	Duracion float64
	Precio   float64
	Silla    float64
	Extra    map[string]any
}

// Document flattens the ticket into a single key/value map, id included.
func (t *Ticket) Document() map[string]any {
	doc := make(map[string]any, 7+len(t.Extra))
	for k, v := range t.Extra {
		doc[k] = v
	}
	doc[FieldID] = t.ID
	doc[FieldEventoID] = t.EventoID
	doc[FieldFecha] = t.Fecha
	doc[FieldHora] = t.Hora
	doc[FieldDuracion] = t.Duracion
	doc[FieldPrecio] = t.Precio
	doc[FieldSilla] = t.Silla
	return doc
}

func (t *Ticket) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Document())
}

func (t *Ticket) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	id, _ := doc[FieldID].(string)
	*t = *TicketFromDocument(id, doc)
	return nil
}

// ExtraKeys returns the names of the undeclared fields in a stable order.
func (t *Ticket) ExtraKeys() []string {
	keys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TicketFromDocument builds the typed view of a stored document. Drivers hand back
// numbers as int32, int64 or float64, so numeric fields are read leniently.
func TicketFromDocument(id string, doc map[string]any) *Ticket {
	t := &Ticket{ID: id}
	for k, v := range doc {
		switch k {
		case FieldID, "_id":
		case FieldEventoID:
			t.EventoID, _ = ToFloat(v)
		case FieldFecha:
			t.Fecha, _ = v.(string)
		case FieldHora:
			t.Hora, _ = ToFloat(v)
		case FieldDuracion:
			t.Duracion, _ = ToFloat(v)
		case FieldPrecio:
			t.Precio, _ = ToFloat(v)
		case FieldSilla:
			t.Silla, _ = ToFloat(v)
		default:
			if t.Extra == nil {
				t.Extra = make(map[string]any)
			}
			t.Extra[k] = v
		}
	}
	return t
}

// ToFloat converts any numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Count is the response body of count and bulk update operations.
type Count struct {
	Count int64 `json:"count"`
}
