package attribution

import (
	"net/url"
	"strings"

	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

// PartnerRecord is the partner and discount metadata of a click, stored in
// the partner data cookie.
type PartnerRecord struct {
	ClickID  string             `json:"clickId"`
	Partner  *trackapi.Partner  `json:"partner,omitempty"`
	Discount *trackapi.Discount `json:"discount,omitempty"`
}

// Empty reports whether the record carries no partner or discount.
func (r PartnerRecord) Empty() bool {
	return r.Partner == nil && r.Discount == nil
}

// partnerRecord builds the stored form of resp. Name and image are
// percent-encoded so the JSON stays cookie safe.
func partnerRecord(resp *trackapi.ClickResponse) (PartnerRecord, bool) {
	if resp == nil || (resp.Partner == nil && resp.Discount == nil) {
		return PartnerRecord{}, false
	}
	rec := PartnerRecord{ClickID: resp.ClickID, Discount: resp.Discount}
	if resp.Partner != nil {
		p := *resp.Partner
		p.Name = encodeURIComponent(p.Name)
		p.Image = encodeURIComponent(p.Image)
		rec.Partner = &p
	}
	return rec, true
}

// decoded reverses the encoding applied by partnerRecord.
func (r PartnerRecord) decoded() PartnerRecord {
	if r.Partner == nil {
		return r
	}
	p := *r.Partner
	if v, err := url.PathUnescape(p.Name); err == nil {
		p.Name = v
	}
	if v, err := url.PathUnescape(p.Image); err == nil {
		p.Image = v
	}
	r.Partner = &p
	return r
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
