// Package discovery advertises the RF service's HTTP API over mDNS so wall
// panels and Core can find it on the LAN without a configured address.
//
// The service type is "_graylogic-rf._tcp". TXT records carry the bridge id,
// the service version, the API base path and the enabled protocol ids.
package discovery
