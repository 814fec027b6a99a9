package network

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safarinet/billing-portal/internal/models"
)

// Router command namespaces for hotspot accounts and live sessions.
const (
	hotspotUserPath   = "/ip/hotspot/user"
	hotspotActivePath = "/ip/hotspot/active"
)

// defaultBulkDelay is the pause between users during bulk creation. It is a
// deliberate backpressure mechanism against the router's single command
// queue, not an accidental artifact.
const defaultBulkDelay = 500 * time.Millisecond

// HotspotManager encodes all account-lifecycle policy for hotspot-type
// accounts on top of a generic Transport: profile selection from the plan's
// speed tier, comment-as-metadata, and uptime-limit-based expiry.
//
// The username is always the subscriber's phone number, and a username maps
// to at most one live router account. Disabling never deletes the account;
// it marks it and zeroes the uptime allowance, so the same key can be
// reactivated later without orphan cleanup.
type HotspotManager struct {
	transport Transport
	locks     *keyedMutex

	// overridable for tests
	bulkDelay time.Duration
	sleep     func(time.Duration)
	now       func() time.Time
}

// NewHotspotManager creates a manager over the given transport.
func NewHotspotManager(transport Transport) *HotspotManager {
	return &HotspotManager{
		transport: transport,
		locks:     newKeyedMutex(),
		bulkDelay: defaultBulkDelay,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// CreateUser provisions a hotspot account for the phone number under the
// given plan and returns the generated credentials. A username maps to at
// most one live router account: when a record already exists (a renewal, or
// a previously disabled account) it is rewritten in place instead of added,
// so reactivation never needs orphan cleanup. The hotspot IP is a
// best-effort enrichment: its lookup failing (or the subscriber simply not
// being connected) never fails the call. The account write failing does.
func (m *HotspotManager) CreateUser(ctx context.Context, phone string, plan models.Plan) (*models.UserCredentials, error) {
	unlock := m.locks.Lock(phone)
	defer unlock()

	password := GenerateHotspotPassword()
	created := m.now()
	expires := created.AddDate(0, 0, plan.DurationDays)

	meta := AccountMetadata{
		Plan:    plan.Name,
		Phone:   phone,
		Created: &created,
		Expires: &expires,
	}

	params := map[string]string{
		"name":         phone,
		"password":     password,
		"profile":      plan.ProfileName(),
		"limit-uptime": fmt.Sprintf("%dd", plan.DurationDays),
		"comment":      meta.Encode(),
	}

	existing, err := m.findUser(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("look up hotspot user %s: %w", phone, err)
	}

	if existing != nil {
		params[".id"] = existing[".id"]
		delete(params, "name")
		if _, err := m.transport.Write(ctx, hotspotUserPath+"/set", params); err != nil {
			return nil, fmt.Errorf("reactivate hotspot user %s: %w", phone, err)
		}
	} else {
		if _, err := m.transport.Write(ctx, hotspotUserPath+"/add", params); err != nil {
			return nil, fmt.Errorf("add hotspot user %s: %w", phone, err)
		}
	}

	log.Infof("[HotspotManager] Created hotspot user %s (plan=%s, uptime=%dd)", phone, plan.Name, plan.DurationDays)

	creds := &models.UserCredentials{
		Username: phone,
		Password: password,
	}

	// Best-effort: if the subscriber is already associated to the hotspot,
	// report the address they were handed.
	if session := m.findActiveSession(ctx, phone); session != nil {
		creds.HotspotIP = session["address"]
		creds.Server = session["server"]
	}

	return creds, nil
}

// DisableUser marks the account disabled and zeroes its uptime allowance to
// force immediate disconnection. Idempotent: an absent account returns false
// with no write issued, because "already absent" is a success state for the
// deactivation flows that call this. Write failures are logged and reported
// as false rather than propagated, so callers can continue cleanup.
func (m *HotspotManager) DisableUser(ctx context.Context, username string) bool {
	unlock := m.locks.Lock(username)
	defer unlock()

	row, err := m.findUser(ctx, username)
	if err != nil {
		log.Warnf("[HotspotManager] Disable %s: lookup failed: %v", username, err)
		return false
	}
	if row == nil {
		return false
	}

	params := map[string]string{
		".id":          row[".id"],
		"limit-uptime": "0s",
		"comment":      MarkDisabled(row["comment"], m.now()),
	}

	if _, err := m.transport.Write(ctx, hotspotUserPath+"/set", params); err != nil {
		log.Errorf("[HotspotManager] Disable %s: write failed: %v", username, err)
		return false
	}

	log.Infof("[HotspotManager] Disabled hotspot user %s", username)
	return true
}

// CheckUserStatus reports whether a router account exists for the username.
// It does not distinguish disabled-but-present from active.
func (m *HotspotManager) CheckUserStatus(ctx context.Context, username string) bool {
	row, err := m.findUser(ctx, username)
	if err != nil {
		log.Warnf("[HotspotManager] Status check %s failed: %v", username, err)
		return false
	}
	return row != nil
}

// GetUserUsage returns a traffic snapshot for the account, or nil if it does
// not exist or the read fails. Usage is advisory; failures here are
// non-fatal by design.
func (m *HotspotManager) GetUserUsage(ctx context.Context, username string) *models.UsageData {
	row, err := m.findUser(ctx, username)
	if err != nil {
		log.Warnf("[HotspotManager] Usage read %s failed: %v", username, err)
		return nil
	}
	if row == nil {
		return nil
	}

	bytesIn, _ := strconv.ParseInt(row["bytes-in"], 10, 64)
	bytesOut, _ := strconv.ParseInt(row["bytes-out"], 10, 64)

	return &models.UsageData{
		BytesIn:    bytesIn,
		BytesOut:   bytesOut,
		Uptime:     row["uptime"],
		DataUsedGB: float64(bytesIn+bytesOut) / float64(1<<30),
	}
}

// CreateManyUsers provisions a batch sequentially with a fixed inter-call
// delay. Best-effort with partial failure: a failing user is logged and
// skipped, the batch continues, and the result holds only the successes in
// their original relative order. Callers needing per-item failure detail
// must diff the input against the output.
func (m *HotspotManager) CreateManyUsers(ctx context.Context, users []models.BulkUser) []models.UserCredentials {
	results := make([]models.UserCredentials, 0, len(users))
	gate := newThrottle(m.bulkDelay, m.sleep)

	for _, u := range users {
		gate.Wait()

		creds, err := m.CreateUser(ctx, u.Phone, u.Plan)
		if err != nil {
			log.Errorf("[HotspotManager] Bulk create: skipping %s: %v", u.Phone, err)
			continue
		}
		results = append(results, *creds)
	}

	log.Infof("[HotspotManager] Bulk create finished: %d/%d succeeded", len(results), len(users))
	return results
}

// GetActiveUsers returns the usernames of currently-connected sessions.
// Fails open to an empty list; a momentarily unreadable session table must
// not break dashboards.
func (m *HotspotManager) GetActiveUsers(ctx context.Context) []string {
	rows, err := m.transport.Read(ctx, hotspotActivePath, nil)
	if err != nil {
		log.Warnf("[HotspotManager] Active session read failed: %v", err)
		return []string{}
	}

	users := make([]string, 0, len(rows))
	for _, row := range rows {
		if name := row["user"]; name != "" {
			users = append(users, name)
		}
	}
	return users
}

// findUser returns the account row for username, nil if absent.
func (m *HotspotManager) findUser(ctx context.Context, username string) (Row, error) {
	rows, err := m.transport.Read(ctx, hotspotUserPath, map[string]string{"name": username})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// findActiveSession returns the live session row for username, nil if the
// subscriber is not connected or the lookup fails.
func (m *HotspotManager) findActiveSession(ctx context.Context, username string) Row {
	rows, err := m.transport.Read(ctx, hotspotActivePath, map[string]string{"user": username})
	if err != nil {
		log.Debugf("[HotspotManager] Active session lookup for %s failed: %v", username, err)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
