package scanner

import (
	"encoding/binary"
	"fmt"
	"iter"
	"net/netip"
	"slices"
	"strconv"
	"strings"
)

// ProbeUnit is a single (host, port) pair handed to exactly one worker.
type ProbeUnit struct {
	Host netip.Addr
	Port uint16
}

func (u ProbeUnit) String() string {
	return netip.AddrPortFrom(u.Host, u.Port).String()
}

// ScanRequest describes what to probe: either one host over a port range or
// port list, or every host address of an IPv4 block on a single port.
// Build it with NewHostRequest, NewHostPortsRequest or NewNetworkRequest.
type ScanRequest struct {
	host      netip.Addr
	portStart uint16
	portEnd   uint16
	// portList, when set, replaces the contiguous range for host requests.
	portList []uint16

	cidr      string
	network   uint32
	broadcast uint32
	isNetwork bool
}

func parseHost(host string) (netip.Addr, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return netip.Addr{}, &RequestError{Kind: ErrMissingTarget}
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, requestErrorf(ErrMissingTarget, "%q is not an IPv4 address", host)
	}
	return addr, nil
}

// NewHostRequest validates a single-host request over [start, end].
func NewHostRequest(host string, start, end int) (ScanRequest, error) {
	addr, err := parseHost(host)
	if err != nil {
		return ScanRequest{}, err
	}
	if err := validatePort(start); err != nil {
		return ScanRequest{}, err
	}
	if err := validatePort(end); err != nil {
		return ScanRequest{}, err
	}
	if start > end {
		return ScanRequest{}, requestErrorf(ErrInvalidRange, "start port %d is greater than end port %d", start, end)
	}
	return ScanRequest{host: addr, portStart: uint16(start), portEnd: uint16(end)}, nil
}

// NewHostPortsRequest validates a single-host request over an explicit port
// list, probed in the given order.
func NewHostPortsRequest(host string, ports []uint16) (ScanRequest, error) {
	addr, err := parseHost(host)
	if err != nil {
		return ScanRequest{}, err
	}
	if len(ports) == 0 {
		return ScanRequest{}, requestErrorf(ErrInvalidRange, "empty port list")
	}
	for _, p := range ports {
		if err := validatePort(int(p)); err != nil {
			return ScanRequest{}, err
		}
	}
	return ScanRequest{
		host:      addr,
		portStart: slices.Min(ports),
		portEnd:   slices.Max(ports),
		portList:  slices.Clone(ports),
	}, nil
}

// NewNetworkRequest validates a CIDR block request probing one port on each host address.
func NewNetworkRequest(cidr string, port int) (ScanRequest, error) {
	cidr = strings.TrimSpace(cidr)
	if cidr == "" {
		return ScanRequest{}, &RequestError{Kind: ErrMissingTarget}
	}
	network, broadcast, err := parseCIDR(cidr)
	if err != nil {
		return ScanRequest{}, err
	}
	if err := validatePort(port); err != nil {
		return ScanRequest{}, err
	}
	return ScanRequest{
		cidr:      cidr,
		network:   network,
		broadcast: broadcast,
		portStart: uint16(port),
		portEnd:   uint16(port),
		isNetwork: true,
	}, nil
}

// NewRequest builds a request from front-end strings. ports is a range, a
// single port or a comma-separated list of both. A non-empty network wins over
// target and probes the first port of ports.
func NewRequest(target, network, ports string) (ScanRequest, error) {
	target, network = strings.TrimSpace(target), strings.TrimSpace(network)
	if target == "" && network == "" {
		return ScanRequest{}, &RequestError{Kind: ErrMissingTarget}
	}
	if strings.Contains(ports, ",") {
		list, err := ParsePortList(ports)
		if err != nil {
			return ScanRequest{}, err
		}
		if network != "" {
			return NewNetworkRequest(network, int(list[0]))
		}
		return NewHostPortsRequest(target, list)
	}
	start, end, err := ParsePortRange(ports)
	if err != nil {
		return ScanRequest{}, err
	}
	if network != "" {
		return NewNetworkRequest(network, start)
	}
	return NewHostRequest(target, start, end)
}

// IsNetwork reports whether the request targets a CIDR block.
func (r ScanRequest) IsNetwork() bool {
	return r.isNetwork
}

// Host returns the target of a host request; it is invalid for network requests.
func (r ScanRequest) Host() netip.Addr {
	return r.host
}

// CIDR returns the block text of a network request.
func (r ScanRequest) CIDR() string {
	return r.cidr
}

// Ports returns the inclusive port bounds. Network requests have start == end.
// For a port list these are its lowest and highest entries.
func (r ScanRequest) Ports() (uint16, uint16) {
	return r.portStart, r.portEnd
}

func (r ScanRequest) String() string {
	if r.isNetwork {
		return fmt.Sprintf("%s port %d", r.cidr, r.portStart)
	}
	if r.portList != nil {
		return fmt.Sprintf("%s %d ports %d-%d", r.host, len(r.portList), r.portStart, r.portEnd)
	}
	return fmt.Sprintf("%s ports %d-%d", r.host, r.portStart, r.portEnd)
}

// Count returns how many units Units yields, without enumerating them.
func (r ScanRequest) Count() uint64 {
	if r.isNetwork {
		if r.broadcast-r.network < 2 {
			return 0
		}
		return uint64(r.broadcast-r.network) - 1
	}
	if !r.host.IsValid() {
		return 0
	}
	if r.portList != nil {
		return uint64(len(r.portList))
	}
	return uint64(r.portEnd-r.portStart) + 1
}

// Units lazily enumerates the request. Each call starts a fresh sequence.
// Network requests exclude the network and broadcast addresses, so /31 and /32 yield nothing.
func (r ScanRequest) Units() iter.Seq[ProbeUnit] {
	return func(yield func(ProbeUnit) bool) {
		if r.isNetwork {
			if r.broadcast-r.network < 2 {
				return
			}
			for a := r.network + 1; a < r.broadcast; a++ {
				if !yield(ProbeUnit{Host: uint32ToAddr(a), Port: r.portStart}) {
					return
				}
			}
			return
		}
		if !r.host.IsValid() {
			return
		}
		if r.portList != nil {
			for _, p := range r.portList {
				if !yield(ProbeUnit{Host: r.host, Port: p}) {
					return
				}
			}
			return
		}
		for p := r.portStart; ; p++ {
			if !yield(ProbeUnit{Host: r.host, Port: p}) {
				return
			}
			if p == r.portEnd {
				return
			}
		}
	}
}

// ParsePortRange reads "start-end" or a single port "N".
func ParsePortRange(ports string) (int, int, error) {
	ports = strings.TrimSpace(ports)
	if ports == "" {
		return 0, 0, requestErrorf(ErrInvalidRange, "empty port range")
	}

	parts := strings.Split(ports, "-")
	if len(parts) > 2 {
		return 0, 0, requestErrorf(ErrInvalidRange, "invalid port range format %q, use startPort-endPort", ports)
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, requestErrorf(ErrInvalidRange, "start port is not a number: %s", parts[0])
	}
	end := start
	if len(parts) == 2 {
		end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, requestErrorf(ErrInvalidRange, "end port is not a number: %s", parts[1])
		}
	}

	if err := validatePort(start); err != nil {
		return 0, 0, err
	}
	if err := validatePort(end); err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, requestErrorf(ErrInvalidRange, "start port must be less than or equal to end port")
	}
	return start, end, nil
}

// ParsePortList reads comma-separated ports and ranges such as "22,80,8000-8010".
// Repeated ports are kept once, at their first position.
func ParsePortList(ports string) ([]uint16, error) {
	var (
		list []uint16
		seen = make(map[uint16]struct{})
	)
	for _, item := range strings.Split(ports, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, requestErrorf(ErrInvalidRange, "empty entry in port list %q", ports)
		}
		start, end, err := ParsePortRange(item)
		if err != nil {
			return nil, err
		}
		for p := start; p <= end; p++ {
			port := uint16(p)
			if _, dup := seen[port]; dup {
				continue
			}
			seen[port] = struct{}{}
			list = append(list, port)
		}
	}
	return list, nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return requestErrorf(ErrInvalidRange, "port %d is outside 1-65535", port)
	}
	return nil
}

// parseCIDR returns the network and broadcast addresses of an IPv4 block
// as host-order integers.
func parseCIDR(cidr string) (uint32, uint32, error) {
	addrPart, prefixPart, ok := strings.Cut(cidr, "/")
	if !ok || strings.Contains(prefixPart, "/") {
		return 0, 0, requestErrorf(ErrInvalidCIDR, "%q is not address/prefix", cidr)
	}

	addr, err := netip.ParseAddr(addrPart)
	if err != nil || !addr.Is4() {
		return 0, 0, requestErrorf(ErrInvalidCIDR, "%q is not an IPv4 address", addrPart)
	}

	if prefixPart == "" || strings.TrimLeft(prefixPart, "0123456789") != "" {
		return 0, 0, requestErrorf(ErrInvalidCIDR, "prefix %q is not a number", prefixPart)
	}
	prefix, err := strconv.Atoi(prefixPart)
	if err != nil || prefix > 32 {
		return 0, 0, requestErrorf(ErrInvalidCIDR, "prefix length %s is outside 0-32", prefixPart)
	}

	var mask uint32
	if prefix > 0 {
		mask = ^uint32(0) << (32 - prefix)
	}
	b := addr.As4()
	ip := binary.BigEndian.Uint32(b[:])
	network := ip & mask
	broadcast := network | ^mask
	return network, broadcast, nil
}

func uint32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
