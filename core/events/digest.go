package events

const KindDigestDelivered Kind = "digest.delivered"

type DigestDelivered struct {
	Base
	// Day is formatted as YYYY-MM-DD.
	Day     string
	Summary string
}

func NewDigestDelivered(day, summary string) DigestDelivered {
	return DigestDelivered{Base: NewBase(KindDigestDelivered), Day: day, Summary: summary}
}
