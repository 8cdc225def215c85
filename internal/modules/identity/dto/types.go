package dto

type IdentityOutput struct {
	Kind        string
	ID          string
	DisplayName string
	AvatarRef   string
}

type IdentityEvent struct {
	Identity IdentityOutput
	Op       string
	Err      error
}
