// Package device is the GATT client side of a BGAPI link.
//
// A Central owns one profile.Device and one transport.Transport. It provides:
//   - Profile discovery in three phases: services, characteristics, descriptors
//   - Attribute read, write and notification enable by UUID or raw handle
//   - One-shot notification polling
//   - Connect, disconnect, link status and module information
//
// Every operation runs under the Central's mutex. An operation that waits for an event
// and sees none within the event timeout reports ErrLinkLost; nothing is retried.
package device
