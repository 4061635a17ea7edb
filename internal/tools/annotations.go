package tools

// NotifyingAnnotations marks tools that reach out to the world (SMS, maps)
// and therefore are not safe to repeat.
func NotifyingAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":    false,
		"destructiveHint": false,
		"idempotentHint":  false,
		"openWorldHint":   true,
	}
}
