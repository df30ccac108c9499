/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

// Package subscribe implements the lead-capture endpoint: it decodes and validates
// a subscription request and relays the email to a newsletter provider through a Forwarder.
package subscribe
