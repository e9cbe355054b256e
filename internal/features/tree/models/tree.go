package models

import "time"

// Kind describes one labeled tree. Both trees share the placement algorithm
// and differ only in storage and child policy.
type Kind struct {
	Name         string
	EdgeTable    string
	SummaryTable string // empty when the tree keeps no group summaries
	// MaxChildren caps direct children of a parent, 0 means unbounded.
	MaxChildren int
	// Groups is the number of group slots, numbered 1..Groups.
	Groups int
	// GroupCapacity caps children per group, 0 means unbounded.
	GroupCapacity int
}

const (
	KindReferral = "referral"
	KindSponsor  = "sponsor"

	SponsorChildLimit = 2
)

// ReferralKind returns the unbounded referral tree with the given number of groups.
func ReferralKind(groups int) Kind {
	return Kind{
		Name:         KindReferral,
		EdgeTable:    "referral_edges",
		SummaryTable: "referral_group_summaries",
		Groups:       groups,
	}
}

// SponsorKind returns the binary sponsor tree: two groups of one child each.
func SponsorKind() Kind {
	return Kind{
		Name:          KindSponsor,
		EdgeTable:     "sponsor_edges",
		MaxChildren:   SponsorChildLimit,
		Groups:        SponsorChildLimit,
		GroupCapacity: 1,
	}
}

// HasSummary reports whether placements maintain group summaries.
func (k Kind) HasSummary() bool {
	return k.SummaryTable != ""
}

// Edge attaches a child to its parent in one tree.
type Edge struct {
	ParentID  string    `json:"parentId"`
	ChildID   string    `json:"childId"`
	GroupNo   int       `json:"groupNo"`
	Position  int       `json:"position"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroupSummary is the bookkeeping row per (parent, group).
type GroupSummary struct {
	ParentID   string    `json:"parentId"`
	GroupNo    int       `json:"groupNo"`
	ChildCount int       `json:"childCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Member is a user reached while walking a subtree.
type Member struct {
	ID           string
	ParentID     string
	Username     string
	Level        int
	ReferralCode string
	JoinedAt     time.Time
	Depth        int // relative to the walk root, root = 0
}

// OrgChart is the flat node/edge view consumed by the tree UI.
type OrgChart struct {
	Nodes []ChartNode `json:"nodes"`
	Edges []ChartEdge `json:"edges"`
}

type ChartNode struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Position ChartPosition `json:"position"`
	Data     ChartNodeData `json:"data"`
}

type ChartPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ChartNodeData struct {
	Label    string `json:"label"`
	Level    int    `json:"level"`
	Code     string `json:"code"`
	JoinDate string `json:"joinDate"`
}

type ChartEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Type     string `json:"type"`
	Animated bool   `json:"animated"`
}
