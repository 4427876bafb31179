package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// EventName returns the audit event name for an RPC, e.g. AUDIT_LIST.
func (ar ActionResource) EventName() string {
	return strings.ToUpper(ar.Resource + "_" + ar.Action)
}

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /asset.audit.v1.AuditService/ListAuditEvents).
// Action is a verb: get, list, validate, revoke, resolve, or a lowercase method name for others.
// Resource is derived from the service name (e.g. AuditService -> audit).
func ParseFullMethod(fullMethod string) ActionResource {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{
		Action:   methodToAction(method),
		Resource: serviceToResource(beforeSlash[dot+1:]),
	}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	for _, prefix := range []string{"Get", "List", "Validate", "Revoke", "Resolve", "Verify", "Dispatch"} {
		if strings.HasPrefix(method, prefix) && method != prefix {
			return strings.ToLower(prefix)
		}
	}
	return strings.ToLower(method)
}
