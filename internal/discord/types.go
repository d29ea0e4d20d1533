package discord

import "fmt"

// User is the shape returned by the /users endpoints.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Avatar        string `json:"avatar"`
	Bot           bool   `json:"bot"`
}

// Tag renders the classic username#discriminator form, or the bare username
// for accounts migrated off discriminators.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// Member is a guild member record from the guild member endpoint.
type Member struct {
	User     *User  `json:"user"`
	Nick     string `json:"nick"`
	Avatar   string `json:"avatar"`
	JoinedAt string `json:"joined_at"`
}

// InviteInfo is the public metadata an invite code resolves to.
type InviteInfo struct {
	Code  string `json:"code"`
	Guild struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon"`
	} `json:"guild"`
	ApproximateMemberCount   int `json:"approximate_member_count"`
	ApproximatePresenceCount int `json:"approximate_presence_count"`
}

// WidgetMember is one entry of the unauthenticated widget member list.
// Member ids in the widget are anonymized on most servers.
type WidgetMember struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Status     string `json:"status"`
	AvatarURL  string `json:"avatar_url"`
}

// AvatarURL builds the CDN avatar URL for a user id and avatar hash.
// Returns "" when there is no hash to build from.
func AvatarURL(userID, hash string) string {
	if userID == "" || hash == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", userID, hash)
}

// IconURL builds the CDN icon URL for a guild id and icon hash.
func IconURL(guildID, hash string) string {
	if guildID == "" || hash == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.png", guildID, hash)
}
