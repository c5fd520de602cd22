package plan

// Subscription plans
const (
	Starter      = "starter"
	Professional = "professional"
	Enterprise   = "enterprise"
)

// Feature flags entitled by plans
const (
	FeatureBasicReports    = "basic_reports"
	FeatureEmailSupport    = "email_support"
	FeatureAdvancedReports = "advanced_reports"
	FeatureAPIAccess       = "api_access"
	FeatureCustomInvoices  = "custom_invoices"
	FeatureMultiLocation   = "multi_location"
	FeaturePrioritySupport = "priority_support"
)

// LimitType identifies one metered resource type
type LimitType string

const (
	LimitWorkOrders LimitType = "workOrders"
	LimitUsers      LimitType = "users"
	LimitStorage    LimitType = "storage"
	LimitAPICalls   LimitType = "apiCalls"
)

// LimitTypes lists every metered resource type
var LimitTypes = []LimitType{LimitWorkOrders, LimitUsers, LimitStorage, LimitAPICalls}

// Unlimited is the sentinel limit value meaning "no ceiling"
const Unlimited int64 = -1

// Limits holds per-resource ceilings. -1 means unlimited.
type Limits struct {
	WorkOrders int64 `gorm:"not null" json:"workOrders"`
	Users      int64 `gorm:"not null" json:"users"`
	StorageMB  int64 `gorm:"not null" json:"storage"`
	APICalls   int64 `gorm:"not null" json:"apiCalls"`
}

// Get returns the ceiling for one limit type, 0 for unknown types
func (l Limits) Get(t LimitType) int64 {
	switch t {
	case LimitWorkOrders:
		return l.WorkOrders
	case LimitUsers:
		return l.Users
	case LimitStorage:
		return l.StorageMB
	case LimitAPICalls:
		return l.APICalls
	}
	return 0
}

// Info describes one subscription plan
type Info struct {
	Plan         string   `json:"plan"`
	Name         string   `json:"name"`
	MonthlyPrice float64  `json:"monthly_price"`
	Currency     string   `json:"currency"`
	Description  []string `json:"description"`
	Features     []string `json:"features"`
	Limits       Limits   `json:"limits"`
}

// catalog is static configuration; it is never mutated after init
var catalog = map[string]Info{
	Starter: {
		Plan:         Starter,
		Name:         "Starter",
		MonthlyPrice: 29,
		Currency:     "USD",
		Description: []string{
			"Up to 50 work orders per month",
			"Up to 3 staff accounts",
			"1 GB document storage",
			"Basic reporting",
		},
		Features: []string{FeatureBasicReports, FeatureEmailSupport},
		Limits:   Limits{WorkOrders: 50, Users: 3, StorageMB: 1024, APICalls: 1000},
	},
	Professional: {
		Plan:         Professional,
		Name:         "Professional",
		MonthlyPrice: 79,
		Currency:     "USD",
		Description: []string{
			"Up to 500 work orders per month",
			"Up to 15 staff accounts",
			"10 GB document storage",
			"Advanced reporting and API access",
			"Custom invoice branding",
		},
		Features: []string{
			FeatureBasicReports, FeatureEmailSupport,
			FeatureAdvancedReports, FeatureAPIAccess, FeatureCustomInvoices,
		},
		Limits: Limits{WorkOrders: 500, Users: 15, StorageMB: 10240, APICalls: 50000},
	},
	Enterprise: {
		Plan:         Enterprise,
		Name:         "Enterprise",
		MonthlyPrice: 199,
		Currency:     "USD",
		Description: []string{
			"Unlimited work orders and staff",
			"Unlimited storage and API calls",
			"Multi-location support",
			"Priority support",
		},
		Features: []string{
			FeatureBasicReports, FeatureEmailSupport,
			FeatureAdvancedReports, FeatureAPIAccess, FeatureCustomInvoices,
			FeatureMultiLocation, FeaturePrioritySupport,
		},
		Limits: Limits{WorkOrders: Unlimited, Users: Unlimited, StorageMB: Unlimited, APICalls: Unlimited},
	},
}

// planOrder keeps Plans() output stable for pricing pages
var planOrder = []string{Starter, Professional, Enterprise}

// requiredPlanForFeature is the lowest plan entitled to each feature
var requiredPlanForFeature = map[string]string{
	FeatureBasicReports:    Starter,
	FeatureEmailSupport:    Starter,
	FeatureAdvancedReports: Professional,
	FeatureAPIAccess:       Professional,
	FeatureCustomInvoices:  Professional,
	FeatureMultiLocation:   Enterprise,
	FeaturePrioritySupport: Enterprise,
}

// Plans returns all plans in pricing order
func Plans() []Info {
	out := make([]Info, 0, len(planOrder))
	for _, p := range planOrder {
		out = append(out, catalog[p])
	}
	return out
}

// Get returns the catalog entry for a plan. The catalog is a closed set;
// unknown plans fall back to starter.
func Get(plan string) Info {
	if info, ok := catalog[plan]; ok {
		return info
	}
	return catalog[Starter]
}

// IsValid reports whether the plan name exists in the catalog
func IsValid(plan string) bool {
	_, ok := catalog[plan]
	return ok
}

// RequiredPlanFor returns the lowest plan entitled to a feature, empty for unknown features
func RequiredPlanFor(feature string) string {
	return requiredPlanForFeature[feature]
}
