package mm

// PageFlags carries provider-specific allocation hints through to
// PageProvider.GetPage. The allocator core does not interpret them.
type PageFlags uint32

// PageProvider is the external collaborator that yields and reclaims
// naturally page-aligned, fixed-size physical pages.
// Pages returned by GetPage must be exactly PageSize bytes.
type PageProvider interface {
	// GetPage returns a new page, or nil with an error if the provider is
	// exhausted.
	GetPage(flags PageFlags) ([]byte, error)
	// FreePage returns a page previously obtained from GetPage.
	FreePage(page []byte) error
}
