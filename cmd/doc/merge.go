package doc

// mergePatch applies patch to target following JSON merge patch (RFC 7386) for objects.
// target is modified in place and returned.
func mergePatch(target, patch map[string]any) map[string]any {
	if target == nil {
		target = map[string]any{}
	}
	for k, v := range patch {
		if v == nil {
			delete(target, k)
			continue
		}
		p, ok := v.(map[string]any)
		if !ok {
			target[k] = v
			continue
		}
		t, _ := target[k].(map[string]any)
		target[k] = mergePatch(t, p)
	}
	return target
}
