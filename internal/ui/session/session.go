// Package session reads and writes the per-user values the explore views
// keep between requests.
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

// Name is the cookie name of the session.
const Name = "leapexplore"

// Session keys.
const (
	UserIDKey         = "_auth_user_id"
	CriteriaMapKey    = "mapCriteriaExplore"
	SavedQueryFormKey = "savedQueryFormExplore"
)

func init() {
	gob.Register(map[string]string{})
}

// Get returns the session of the request. A fresh session is returned when the
// cookie cannot be decoded.
func Get(store sessions.Store, r *http.Request) *sessions.Session {
	sess, err := store.Get(r, Name)
	if err != nil && sess == nil {
		sess = sessions.NewSession(store, Name)
	}
	return sess
}

// UserID returns the signed in user, or "" for anonymous requests.
func UserID(store sessions.Store, r *http.Request) string {
	id, _ := Get(store, r).Values[UserIDKey].(string)
	return id
}

// SetUserID signs userID in.
func SetUserID(store sessions.Store, w http.ResponseWriter, r *http.Request, userID string) error {
	sess := Get(store, r)
	sess.Values[UserIDKey] = userID
	return sess.Save(r, w)
}

// Clear removes every value of the session.
func Clear(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	sess := Get(store, r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// ResetQueryForm empties the query builder state.
func ResetQueryForm(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	return SetQueryForm(store, w, r, map[string]string{}, "")
}

// SetQueryForm stores the criteria map and the serialized builder form.
func SetQueryForm(store sessions.Store, w http.ResponseWriter, r *http.Request, criteria map[string]string, form string) error {
	sess := Get(store, r)
	sess.Values[CriteriaMapKey] = criteria
	sess.Values[SavedQueryFormKey] = form
	return sess.Save(r, w)
}

// QueryForm returns the serialized builder form and whether one was stored.
func QueryForm(store sessions.Store, r *http.Request) (string, bool) {
	form, ok := Get(store, r).Values[SavedQueryFormKey].(string)
	return form, ok
}

// CriteriaMap returns the criterion id to field path map of the builder.
func CriteriaMap(store sessions.Store, r *http.Request) map[string]string {
	m, ok := Get(store, r).Values[CriteriaMapKey].(map[string]string)
	if !ok {
		return map[string]string{}
	}
	return m
}
