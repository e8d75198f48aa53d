package patterns

import (
	"strings"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

// classifierEntry maps a set of keywords to a category. Entries are scanned
// in order; the first keyword hit wins, so specific categories must precede
// generic ones ("enterprise name" must classify as business, not personal).
type classifierEntry struct {
	keywords []string
	category domain.FieldCategory
}

var classifier = []classifierEntry{
	{[]string{"aadhaar", "adhar"}, domain.CategoryIdentityAadhaar},
	{[]string{"pan"}, domain.CategoryIdentityPAN},
	{[]string{"otp", "verification"}, domain.CategoryVerificationOTP},
	{[]string{"mobile", "phone"}, domain.CategoryContactMobile},
	{[]string{"email"}, domain.CategoryContactEmail},
	{[]string{"pincode", "pin code", "postal"}, domain.CategoryLocationPincode},
	{[]string{"city", "district"}, domain.CategoryLocationCity},
	{[]string{"state"}, domain.CategoryLocationState},
	{[]string{"address"}, domain.CategoryLocationAddress},
	{[]string{"enterprise", "organisation", "organization", "business"}, domain.CategoryBusinessName},
	{[]string{"name"}, domain.CategoryPersonalName},
}

// Classify scans the lower-cased concatenation of a field's id, name and
// label for category keywords in fixed priority order. Fields that match
// nothing are general.
func Classify(id, name, label string) domain.FieldCategory {
	text := strings.ToLower(id + " " + name + " " + label)
	for _, entry := range classifier {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryGeneral
}

// Broad category buckets, in the order they appear in schema output
const (
	BucketIdentity     = "identity"
	BucketContact      = "contact"
	BucketLocation     = "location"
	BucketVerification = "verification"
	BucketPersonal     = "personal"
	BucketBusiness     = "business"
	BucketGeneral      = "general"
)

// Buckets lists every broad category bucket
func Buckets() []string {
	return []string{
		BucketIdentity, BucketContact, BucketLocation,
		BucketVerification, BucketPersonal, BucketBusiness, BucketGeneral,
	}
}

// BroadCategory buckets a field category by prefix into one of the fixed
// broad categories. Unmatched or empty categories go to general.
func BroadCategory(cat domain.FieldCategory) string {
	s := string(cat)
	switch {
	case strings.HasPrefix(s, "identity"):
		return BucketIdentity
	case strings.HasPrefix(s, "contact"):
		return BucketContact
	case strings.HasPrefix(s, "location"):
		return BucketLocation
	case strings.HasPrefix(s, "verification"):
		return BucketVerification
	case strings.HasPrefix(s, "personal"):
		return BucketPersonal
	case strings.HasPrefix(s, "business"):
		return BucketBusiness
	default:
		return BucketGeneral
	}
}
