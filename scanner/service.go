package scanner

// UnknownService is returned for ports missing from the well-known table.
const UnknownService = "Unknown"

var wellKnownServices = map[uint16]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	143:   "IMAP",
	443:   "HTTPS",
	445:   "SMB",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	6379:  "Redis",
	8080:  "HTTP-Proxy",
	8443:  "HTTPS-Alt",
	27017: "MongoDB",
}

// IdentifyService maps a port to its well-known service name.
func IdentifyService(port uint16) string {
	if name, ok := wellKnownServices[port]; ok {
		return name
	}
	return UnknownService
}
