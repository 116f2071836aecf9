package types

// Canonical records for every table mirrored from the server. Field
// names are stable and language-neutral; the wire package owns the
// mapping from either wire shape onto them. Timestamps are
// microseconds since epoch.

type UserRole string

const (
	RoleUser  UserRole = "User"
	RoleAdmin UserRole = "Admin"
)

type MemberRole string

const (
	MemberTop           MemberRole = "Top"
	MemberBottom        MemberRole = "Bottom"
	MemberObserver      MemberRole = "Observer"
	MemberPhotographer  MemberRole = "Photographer"
	MemberActivityAdmin MemberRole = "ActivityAdmin"
)

type ActivityKind string

const (
	KindSkill    ActivityKind = "Skill"
	KindActivity ActivityKind = "Activity"
)

type PlayerActivityStatus string

const (
	StatusLocked    PlayerActivityStatus = "Locked"
	StatusAvailable PlayerActivityStatus = "Available"
	StatusCompleted PlayerActivityStatus = "Completed"
)

type RoomActivityStatus string

const (
	RoomActivityViewing    RoomActivityStatus = "Viewing"
	RoomActivityInProgress RoomActivityStatus = "InProgress"
	RoomActivityCompleted  RoomActivityStatus = "Completed"
	RoomActivityCancelled  RoomActivityStatus = "Cancelled"
)

type InvitationStatus string

const (
	InvitePending  InvitationStatus = "Pending"
	InviteAccepted InvitationStatus = "Accepted"
	InviteDeclined InvitationStatus = "Declined"
	InviteExpired  InvitationStatus = "Expired"
)

type User struct {
	ID           uint64
	Identity     string // normalized lowercase hex, no 0x marker
	Username     string
	PasswordHash string
	Role         UserRole
	CreatedAt    int64
	UpdatedAt    int64
}

type Player struct {
	ID        uint64
	UserID    uint64
	Username  string
	XP        int64
	CreatedAt int64
}

type Room struct {
	ID        uint64
	Code      string // 5-char shareable token
	Name      string
	OwnerID   uint64
	Open      bool
	CreatedAt int64
}

type RoomMember struct {
	ID       uint64
	RoomID   uint64
	PlayerID uint64
	Role     MemberRole
	JoinedAt int64
}

type RoomInvitation struct {
	ID             uint64
	Token          string
	RoomID         uint64
	CreatorID      uint64
	TargetUsername *string
	Status         InvitationStatus
	AcceptedBy     *uint64
}

// DefaultCategoryMaxID separates seeded default categories (id below)
// from user-created ones.
const DefaultCategoryMaxID = 100

type Category struct {
	ID           uint64
	Name         string
	Description  string
	DisplayOrder int64
}

func (c Category) IsDefault() bool { return c.ID < DefaultCategoryMaxID }

type Activity struct {
	ID           uint64
	CategoryID   uint64
	Kind         ActivityKind
	Name         string
	Description  string
	Instructions string
	VideoURL     *string
	XPRequired   int64
	XPReward     int64
}

type PlayerActivity struct {
	ID         uint64
	PlayerID   uint64
	ActivityID uint64
	Status     PlayerActivityStatus
	Vouched    bool
	Rating     *int64
}

// PlayerUnlockedActivity is denormalized on the server: it carries the
// activity and category names so lists render without extra joins.
type PlayerUnlockedActivity struct {
	ID           uint64
	PlayerID     uint64
	ActivityID   uint64
	ActivityName string
	CategoryID   uint64
	CategoryName string
	IsNew        bool
}

type RoomActivity struct {
	ID         uint64
	RoomID     uint64
	ActivityID uint64
	Status     RoomActivityStatus
	StartedBy  uint64
	CreatedAt  int64
}

func (ra RoomActivity) Active() bool {
	return ra.Status == RoomActivityViewing || ra.Status == RoomActivityInProgress
}

type ActivityParticipant struct {
	ID             uint64
	RoomActivityID uint64
	PlayerID       uint64
	Role           MemberRole
	Completed      bool
	XPEarned       int64
}

type PlayerNotWantedActivity struct {
	ID         uint64
	PlayerID   uint64
	ActivityID uint64
}

type UserCategoryPreference struct {
	ID         uint64
	UserID     uint64
	CategoryID uint64
}

type PlayerCategoryPreference struct {
	ID         uint64
	PlayerID   uint64
	CategoryID uint64
}
