// Command resetpw resets a stored account's password directly in the
// gallery database. It is meant for operators locked out of the web
// interface; run it on the host with DATABASE_DIR pointing at the same
// directory the server uses.
package main
