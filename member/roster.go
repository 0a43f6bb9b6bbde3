// Package member knows who is on the trip: the roster, each member's profile
// and status, and the PIN gates in front of personal pages.
//
// PIN and admin code checks are UI gates. Every shared document can still be
// written by any client; nothing here is an authorization layer.
package member

import (
	"fmt"
	"slices"
)

// Roster describes the trip group.
type Roster struct {
	Members       []string          `yaml:"members" json:"members"`
	RaffleMembers []string          `yaml:"raffleMembers" json:"raffleMembers"`
	Titles        map[string]string `yaml:"titles" json:"titles"`
	Photos        map[string]string `yaml:"photos" json:"photos"`
	SecretPair    [2]string         `yaml:"secretPair" json:"-"`
	StatusOptions []string          `yaml:"statusOptions" json:"statusOptions"`
}

// DefaultRoster is the 2026 Japan trip group.
func DefaultRoster() Roster {
	return Roster{
		Members:       []string{"Sean", "Ben", "Oedi", "Wilson", "Ethan", "William", "Alvin", "Sophia", "Daisy", "Jennifer", "Sebrina", "Nica"},
		RaffleMembers: []string{"Sean", "Wilson", "Ben", "Ethan", "Oedi", "William", "Alvin", "Sophia", "Daisy", "Nica"},
		Titles: map[string]string{
			"Sean": "首席領航員 ✈️", "Ben": "和牛鑑定師 🥩", "Oedi": "時尚急先鋒 💅", "Wilson": "酒精管理員 🥂",
			"Ethan": "美照攝影師 📸", "William": "血拼戰神 🛍️", "Alvin": "迷路小隊長 🗺️", "Sophia": "微笑外交官 ✨",
			"Daisy": "甜點巡邏隊 🍰", "Jennifer": "情報分析官 🔍", "Sebrina": "採買總指揮 🛒", "Nica": "最萌吉祥物 🦄",
		},
		Photos:        map[string]string{},
		SecretPair:    [2]string{"Ethan", "Alvin"},
		StatusOptions: []string{"🛒 採買中", "🍜 吃飯中", "💤 補眠中", "🚶 走路中", "📸 拍美照", "🚃 搭車中", "🛍️ 爆買中", "🚫 不顯示"},
	}
}

// HiddenStatus is the status that hides a member from the board.
func (r Roster) HiddenStatus() string {
	if len(r.StatusOptions) == 0 {
		return ""
	}
	return r.StatusOptions[len(r.StatusOptions)-1]
}

func (r Roster) IsMember(name string) bool {
	return slices.Contains(r.Members, name)
}

// Validate checks that raffle members and the secret pair belong to the group.
func (r Roster) Validate() error {
	if len(r.Members) == 0 {
		return fmt.Errorf("roster has no members")
	}
	seen := make(map[string]bool)
	for _, m := range r.Members {
		if m == "" {
			return fmt.Errorf("roster has an empty member name")
		}
		if seen[m] {
			return fmt.Errorf("member %s listed twice", m)
		}
		seen[m] = true
	}
	for _, m := range r.RaffleMembers {
		if !seen[m] {
			return fmt.Errorf("raffle member %s is not in the roster", m)
		}
	}
	for _, m := range r.SecretPair {
		if m != "" && !slices.Contains(r.RaffleMembers, m) {
			return fmt.Errorf("secret pair member %s is not a raffle member", m)
		}
	}
	if len(r.StatusOptions) == 0 {
		return fmt.Errorf("roster has no status options")
	}
	return nil
}
