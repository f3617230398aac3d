package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	apperrors "ticketapi/internal/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// TicketInput is a ticket body sent by a client. It backs create and replace, where
// every declared field is required, and partial updates, where any subset may be set.
// Unknown keys are kept in Extra; a client supplied id is dropped.
type TicketInput struct {
	EventoID *float64 `json:"eventoId" validate:"required"`
	Fecha    *string  `json:"fecha" validate:"required"`
	Hora     *float64 `json:"hora" validate:"required"`
	Duracion *float64 `json:"duracion" validate:"required"`
	Precio   *float64 `json:"precio" validate:"required"`
	Silla    *float64 `json:"silla" validate:"required"`

	Extra map[string]any `json:"-"`
}

// UnmarshalJSON type checks declared fields. A declared field holding the wrong
// JSON type yields a ValidationError; malformed JSON yields the decoder error.
func (in *TicketInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperrors.Mistyped("body", "an object")
		}
		return err
	}

	*in = TicketInput{}
	for k, v := range raw {
		var err error
		switch k {
		case FieldID, "_id":
			continue
		case FieldEventoID:
			in.EventoID, err = decodeNumber(k, v)
		case FieldFecha:
			in.Fecha, err = decodeString(k, v)
		case FieldHora:
			in.Hora, err = decodeNumber(k, v)
		case FieldDuracion:
			in.Duracion, err = decodeNumber(k, v)
		case FieldPrecio:
			in.Precio, err = decodeNumber(k, v)
		case FieldSilla:
			in.Silla, err = decodeNumber(k, v)
		default:
			var value any
			if err = json.Unmarshal(v, &value); err == nil {
				if in.Extra == nil {
					in.Extra = make(map[string]any)
				}
				in.Extra[k] = value
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeNumber(field string, v json.RawMessage) (*float64, error) {
	if isNull(v) {
		return nil, apperrors.Mistyped(field, "a number")
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil, apperrors.Mistyped(field, "a number")
	}
	return &f, nil
}

func decodeString(field string, v json.RawMessage) (*string, error) {
	if isNull(v) {
		return nil, apperrors.Mistyped(field, "a string")
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, apperrors.Mistyped(field, "a string")
	}
	return &s, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Validate checks that every declared field is present.
func (in *TicketInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return apperrors.Missing(fields...)
}

// Empty reports whether the input sets no field at all.
func (in *TicketInput) Empty() bool {
	return len(in.Document()) == 0
}

// Document returns the fields that are set plus the extras, ready for storage.
func (in *TicketInput) Document() map[string]any {
	doc := make(map[string]any, 6+len(in.Extra))
	for k, v := range in.Extra {
		doc[k] = v
	}
	if in.EventoID != nil {
		doc[FieldEventoID] = *in.EventoID
	}
	if in.Fecha != nil {
		doc[FieldFecha] = *in.Fecha
	}
	if in.Hora != nil {
		doc[FieldHora] = *in.Hora
	}
	if in.Duracion != nil {
		doc[FieldDuracion] = *in.Duracion
	}
	if in.Precio != nil {
		doc[FieldPrecio] = *in.Precio
	}
	if in.Silla != nil {
		doc[FieldSilla] = *in.Silla
	}
	return doc
}

// NewTicketInput is a convenience constructor for a complete body.
func NewTicketInput(eventoID float64, fecha string, hora, duracion, precio, silla float64) TicketInput {
	return TicketInput{
		EventoID: &eventoID,
		Fecha:    &fecha,
		Hora:     &hora,
		Duracion: &duracion,
		Precio:   &precio,
		Silla:    &silla,
	}
}
