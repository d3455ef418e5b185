package domain

import (
	"errors"
	"fmt"
)

// LocationCode classifies why a device position could not be obtained.
type LocationCode string

const (
	LocationPermissionDenied    LocationCode = "PERMISSION_DENIED"
	LocationPositionUnavailable LocationCode = "POSITION_UNAVAILABLE"
	LocationTimeout             LocationCode = "TIMEOUT"
	LocationUnsupported         LocationCode = "UNSUPPORTED"
)

// LocationError is returned by every GeoLocator failure.
type LocationError struct {
	Code LocationCode
	Err  error
}

func (e *LocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("locate: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("locate: %s", e.Code)
}

func (e *LocationError) Unwrap() error { return e.Err }

// Message is the text shown to the user. It always suggests the city search.
func (e *LocationError) Message() string {
	const prefix = "Não foi possível obter sua localização. "
	const hint = " Você também pode buscar pelo nome da cidade."

	switch e.Code {
	case LocationPermissionDenied:
		return prefix + "Permissão negada. Por favor, permita o acesso à localização nas configurações do dispositivo." + hint
	case LocationPositionUnavailable:
		return prefix + "Localização indisponível. Verifique se o GPS está ativado." + hint
	case LocationTimeout:
		return prefix + "Tempo limite excedido. Tente novamente." + hint
	case LocationUnsupported:
		return "Geolocalização não é suportada por este dispositivo." + hint
	default:
		return prefix + "Erro desconhecido." + hint
	}
}

// FetchKind classifies unit-search failures.
type FetchKind string

const (
	FetchNetworkFailure  FetchKind = "NETWORK_FAILURE"
	FetchHTTPError       FetchKind = "HTTP_ERROR"
	FetchInvalidResponse FetchKind = "INVALID_RESPONSE"
	FetchEmptyQuery      FetchKind = "EMPTY_QUERY"
	// FetchInvalidQuery rejects a coordinate search outside valid ranges.
	FetchInvalidQuery FetchKind = "INVALID_QUERY"
)

// FetchError is returned by every UnitRepository failure.
// BackendMessage carries the envelope's message verbatim when one was sent.
type FetchError struct {
	Kind           FetchKind
	Status         int
	BackendMessage string
	Err            error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch units: %s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.BackendMessage != "" {
		msg += fmt.Sprintf(" message=%q", e.BackendMessage)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Message() string {
	if e.BackendMessage != "" {
		return e.BackendMessage
	}

	var ve *ValidationError
	if errors.As(e.Err, &ve) {
		return ve.Message()
	}

	switch e.Kind {
	case FetchNetworkFailure:
		return "Não foi possível conectar ao servidor. Verifique sua conexão e tente novamente."
	case FetchHTTPError:
		return fmt.Sprintf("Erro ao buscar unidades (HTTP %d). Tente novamente.", e.Status)
	case FetchInvalidResponse:
		return "Resposta inválida do servidor. Tente novamente."
	default:
		return "Erro ao buscar unidades."
	}
}

// ValidationError rejects user input before any request is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Message() string {
	switch e.Field {
	case "city":
		return "Digite o nome de uma cidade para buscar."
	case "coordinate":
		return "Localização inválida para a busca."
	}
	return fmt.Sprintf("Valor inválido para %s.", e.Field)
}

// ErrEmptyCity is the reason used for blank city searches.
var ErrEmptyCity = &ValidationError{Field: "city", Reason: "must be non-empty"}

// DisplayMessage extracts the user-facing text from any finder error.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var le *LocationError
	if errors.As(err, &le) {
		return le.Message()
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message()
	}
	return err.Error()
}
