// Package authsecure implements the session-scoped authentication client.
//
// A Client starts Uninitialized. Init exchanges the application credentials
// for a session id; Login, Register and RedeemLicense then authenticate an
// end user against that session, each tagged with the machine identity.
//
// Failures are returned, never fatal to the host process:
//
//   - transport.TransportError (errors.Is ErrTransport): the request never
//     produced a usable response.
//   - ErrInitializationFailed: the server refused the session.
//   - ErrOperationRejected: the server refused a user operation. The session
//     stays valid and the caller may retry.
//   - ErrNotInitialized: a user operation was attempted before Init.
//   - ErrInvalidRequest: a required field was empty; nothing was sent.
//
// Server messages are available through apperrors.ServerMessage.
package authsecure
