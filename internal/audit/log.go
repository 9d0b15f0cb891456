package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"lexhub.io/internal/auth"
	"lexhub.io/internal/obs"
	"lexhub.io/internal/tenant"
)

// Event names recorded by the service.
const (
	EventLogin             = "auth.login"
	EventTokenRefreshed    = "auth.token_refreshed"
	EventLogout            = "auth.logout"
	EventTenantCreated     = "tenant.created"
	EventTenantActivated   = "tenant.activated"
	EventTenantDeactivated = "tenant.deactivated"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with the request id, the acting
// principal and the tenant bound to the context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	entry, err := newEntry(ctx, event, fields)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

func newEntry(ctx context.Context, event string, fields map[string]any) (map[string]any, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return nil, errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		entry["account"] = p.Subject
	}
	if tenantID, ok := tenant.FromContext(ctx); ok {
		entry["tenant"] = tenantID
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}
	return entry, nil
}
