package authz

// Scope is the authorization boundary a role or assignment applies to: one
// specific community, or the whole instance. The zero value is the instance
// scope. Scopes are comparable and immutable after construction.
type Scope struct {
	CommunityID string
}

// Instance is the singleton instance-wide scope.
var Instance = Scope{}

// Community returns the scope of a single community.
func Community(communityID string) Scope {
	return Scope{CommunityID: communityID}
}

// IsInstance reports whether this is the instance-wide scope.
func (s Scope) IsInstance() bool {
	return s.CommunityID == ""
}

// String renders the scope for logs and cache keys.
func (s Scope) String() string {
	if s.IsInstance() {
		return "instance"
	}
	return "community:" + s.CommunityID
}
