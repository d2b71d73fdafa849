package interfaces

// -----------------------------------------------------------------------------
// ICredentialProvider supplies the optional bearer credential.
// -----------------------------------------------------------------------------

type ICredentialProvider interface {

	// CurrentCredential returns the credential, or "" when there is none.
	CurrentCredential() string

	// -----------------------------------------------------------------------------

	// Changes fires whenever the credential changes. Receivers restart the stream.
	Changes() <-chan struct{}
}
