// Package gallery is the authorization and service layer between the
// HTTP handlers and the catalog.
//
// The access rule is small: a user always reads their own gallery, and
// reads another user's only while a share grant from that user exists.
// The share graph is consulted per request, never cached, so revocation
// is immediate. The package also handles uploads, writing the file into
// the owner's media directory with exclusive-create semantics and
// cataloging it inline.
package gallery
