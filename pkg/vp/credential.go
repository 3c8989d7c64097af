package vp

// Credential is a decoded verifiable credential. Credentials are arbitrary
// JSON-LD documents, so the type stays loose and offers accessors for the
// fields the shop cares about.
type Credential map[string]any

func (c Credential) Types() []string {
	switch t := c["type"].(type) {
	case string:
		return []string{t}
	case []any:
		types := make([]string, 0, len(t))
		for _, entry := range t {
			if s, ok := entry.(string); ok {
				types = append(types, s)
			}
		}
		return types
	}
	return nil
}

func (c Credential) IsType(t string) bool {
	for _, candidate := range c.Types() {
		if candidate == t {
			return true
		}
	}
	return false
}

// Issuer returns the issuer id, handling both the plain string and the
// object form.
func (c Credential) Issuer() string {
	switch issuer := c["issuer"].(type) {
	case string:
		return issuer
	case map[string]any:
		if id, ok := issuer["id"].(string); ok {
			return id
		}
	}
	return ""
}

func (c Credential) Subject() map[string]any {
	if subject, ok := c["credentialSubject"].(map[string]any); ok {
		return subject
	}
	return nil
}
