package ultradns

import (
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/tfullert/ultra-cli/pkg/entity"
)

// RDataSeparator joins the values of a multi-valued record set.
const RDataSeparator = ", "

func zoneEntity(p zoneProperties) entity.Entity {
	return entity.New(entity.KindZone, map[string]string{
		entity.FieldName:    p.Name,
		entity.FieldType:    strings.ToUpper(p.Type),
		entity.FieldStatus:  strings.ToUpper(p.Status),
		entity.FieldOwner:   p.Owner,
		entity.FieldAccount: p.AccountName,
		entity.FieldRecords: strconv.Itoa(p.ResourceRecordCount),
		entity.FieldDNSSEC:  p.DNSSECStatus,
		entity.FieldUpdated: p.LastModifiedDateTime,
	})
}

func recordEntity(zone string, rr rrSetWire) entity.Entity {
	zone = dns.Fqdn(zone)
	return entity.New(entity.KindRecord, map[string]string{
		entity.FieldZone:  zone,
		entity.FieldOwner: RelativeOwner(rr.OwnerName, zone),
		entity.FieldName:  AbsoluteOwner(rr.OwnerName, zone),
		entity.FieldType:  NormalizeType(rr.RRType),
		entity.FieldTTL:   strconv.Itoa(rr.TTL),
		entity.FieldRData: strings.Join(rr.RData, RDataSeparator),
	})
}

// NormalizeType turns the service's record type notation, such as "A (1)"
// or "(65)", into the mnemonic ("A", "HTTPS"). Unknown types are returned
// upper-cased without the numeric suffix.
func NormalizeType(s string) string {
	s = strings.TrimSpace(s)
	name, num := s, ""
	if i := strings.Index(s, "("); i >= 0 {
		name = strings.TrimSpace(s[:i])
		num = strings.TrimSpace(strings.TrimSuffix(s[i+1:], ")"))
	}

	upper := strings.ToUpper(name)
	if t, ok := dns.StringToType[upper]; ok {
		return dns.TypeToString[t]
	}
	if n, err := strconv.ParseUint(num, 10, 16); err == nil {
		if mnemonic, ok := dns.TypeToString[uint16(n)]; ok {
			return mnemonic
		}
		if upper == "" {
			return "TYPE" + num
		}
	}
	return upper
}

// AbsoluteOwner returns the fully qualified owner name. Relative names are
// taken to be relative to zone.
func AbsoluteOwner(owner, zone string) string {
	switch {
	case owner == "" || owner == "@":
		return dns.Fqdn(zone)
	case dns.IsFqdn(owner):
		return owner
	default:
		return owner + "." + dns.Fqdn(zone)
	}
}

// RelativeOwner returns owner relative to zone, "@" for the apex. Names
// outside zone are returned fully qualified.
func RelativeOwner(owner, zone string) string {
	abs := AbsoluteOwner(owner, zone)
	z := dns.Fqdn(zone)
	if strings.EqualFold(abs, z) {
		return "@"
	}
	if dns.IsSubDomain(z, abs) {
		return abs[:len(abs)-len(z)-1]
	}
	return abs
}
