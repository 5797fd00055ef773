package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session é o payload opaco do provedor de identidade. Só expires_at é
// interpretado; o resto é devolvido ao cliente como veio.
type Session struct {
	ExpiresAt time.Time
	raw       json.RawMessage
}

// New valida um payload JSON (objeto) e extrai expires_at.
func New(payload []byte) (Session, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Session{}, fmt.Errorf("session: payload is not a JSON object: %w", err)
	}
	rawExp, ok := fields["expires_at"]
	if !ok || string(rawExp) == "null" {
		return Session{}, ErrMissingExpiry
	}
	exp, err := parseExpiry(rawExp)
	if err != nil {
		return Session{}, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return Session{}, fmt.Errorf("session: compact payload: %w", err)
	}
	return Session{ExpiresAt: exp, raw: buf.Bytes()}, nil
}

// Decode aceita as duas formas que aparecem no store: o objeto JSON da sessão,
// ou uma string JSON que contém esse objeto (valor serializado duas vezes).
func Decode(data []byte) (Session, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Session{}, errors.New("session: empty cache entry")
	}

	switch data[0] {
	case '{':
		return New(data)
	case '"':
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Session{}, fmt.Errorf("session: invalid string entry: %w", err)
		}
		inner = strings.TrimSpace(inner)
		if !strings.HasPrefix(inner, "{") {
			return Session{}, errors.New("session: string entry does not wrap an object")
		}
		return New([]byte(inner))
	default:
		return Session{}, fmt.Errorf("session: unsupported cache entry starting with %q", data[0])
	}
}

// Expired informa se expires_at já passou em now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

func (s Session) IsZero() bool { return len(s.raw) == 0 }

func (s Session) MarshalJSON() ([]byte, error) {
	if len(s.raw) == 0 {
		return []byte("null"), nil
	}
	return s.raw, nil
}

func (s *Session) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// acima disso o número é tratado como milissegundos
const unixMillisThreshold = 1e12

// parseExpiry aceita segundos unix (número ou string numérica), milissegundos
// unix e RFC 3339.
func parseExpiry(raw json.RawMessage) (time.Time, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return fromUnix(num.String())
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("session: expires_at: unsupported value %s", raw)
	}
	s = strings.TrimSpace(s)
	if t, err := fromUnix(s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("session: expires_at: %w", err)
	}
	return t, nil
}

func fromUnix(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	if f > unixMillisThreshold {
		return time.UnixMilli(int64(f)), nil
	}
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9)), nil
}
