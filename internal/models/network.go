package models

// UserCredentials is what a subscriber needs to sign on to the hotspot.
// Produced once per account creation; the password is generated fresh every
// time and never reused across accounts.
type UserCredentials struct {
	Username  string `json:"username"` // subscriber phone number
	Password  string `json:"password"`
	HotspotIP string `json:"hotspot_ip,omitempty"` // best-effort, empty if not connected
	Server    string `json:"server,omitempty"`
}

// UsageData is a point-in-time traffic snapshot read from the router.
// Never cached or persisted by the provisioning layer.
type UsageData struct {
	BytesIn    int64   `json:"bytes_in"`
	BytesOut   int64   `json:"bytes_out"`
	Uptime     string  `json:"uptime"`
	DataUsedGB float64 `json:"data_used_gb"`
}

// BulkUser is one entry in a batch provisioning request.
type BulkUser struct {
	Phone string `json:"phone" binding:"required"`
	Plan  Plan   `json:"plan"`
}
