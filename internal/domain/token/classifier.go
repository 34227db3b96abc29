package token

// validator checks the claims a particular token type requires
type validator func(c *Claims) error

var validators = map[Type]validator{
	TypeAccess:     requireSubject,
	TypeRefresh:    requireSubject,
	TypeMasquerade: validateMasquerade,
	TypeActingAs:   validateActingAs,
}

// Classify confirms that claims are of the expected type and that the fields
// that type requires are present and consistent.
func Classify(c *Claims, expected Type) (Type, error) {
	t, ok := c.Type()
	if !ok || t != expected {
		return "", ErrWrongType
	}

	validate, ok := validators[t]
	if !ok {
		return "", ErrWrongType
	}
	if err := validate(c); err != nil {
		return "", err
	}
	return t, nil
}

func requireSubject(c *Claims) error {
	if c.SubjectID == "" {
		return ErrMissingSubject
	}
	return nil
}

// validateMasquerade requires the administrator and the impersonated account
// to be distinct and the subject to be the impersonated account.
func validateMasquerade(c *Claims) error {
	switch {
	case c.ActorID == "", c.TargetID == "":
		return ErrDelegationClaims
	case c.ActorID == c.TargetID:
		return ErrDelegationClaims
	case c.SubjectID != c.TargetID:
		return ErrDelegationClaims
	}
	return nil
}

// validateActingAs checks internal consistency only. Whether the role change is
// permitted is decided by the caller's authorization layer.
func validateActingAs(c *Claims) error {
	if c.SubjectID == "" || c.HomeRole == "" || c.EffectiveRole == "" {
		return ErrDelegationClaims
	}
	return nil
}
