package models

// Feature names an optional provider capability.
type Feature string

const (
	FeaturePurchase      Feature = "purchase"
	FeatureVoid          Feature = "void"
	FeatureCredit        Feature = "credit"
	FeatureRefund        Feature = "refund"
	FeaturePartialRefund Feature = "partial_refund"
	FeatureCapture       Feature = "capture"
	FeatureAuthorize     Feature = "authorize"
	FeatureDelete        Feature = "delete"
	FeatureRetain        Feature = "retain"
)

// Features lists every capability a provider can be asked about.
var Features = []Feature{
	FeaturePurchase,
	FeatureVoid,
	FeatureCredit,
	FeatureRefund,
	FeaturePartialRefund,
	FeatureCapture,
	FeatureAuthorize,
	FeatureDelete,
	FeatureRetain,
}

// ParseFeature returns the feature with the given name.
func ParseFeature(name string) (Feature, bool) {
	for _, f := range Features {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}
