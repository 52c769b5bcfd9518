// Package logging builds the process-wide slog logger from
// configuration and scrubs credentials from log attributes.
//
// Every attribute passes through the redactor: values of keys that
// look credential-bearing are replaced wholesale, and bearer tokens
// embedded in strings are masked. Error text never carries
// credentials, so redaction here closes the remaining path into the
// logs.
package logging
