package domain

import "github.com/google/uuid"

// User and team specific optional fields
const (
	FieldTeams   = "teams"
	FieldUsers   = "users"
	FieldOwns    = "owns"
	FieldFollows = "follows"
)

// UserFields are the fields a user GET may request
var UserFields = []string{FieldTeams, FieldFollows, FieldOwns}

// TeamFields are the fields a team GET may request
var TeamFields = []string{FieldUsers, FieldOwns}

// User is a person or bot account
type User struct {
	Base
	Email   string            `json:"email"`
	IsAdmin bool              `json:"isAdmin,omitempty"`
	IsBot   bool              `json:"isBot,omitempty"`
	Teams   []EntityReference `json:"teams,omitempty"`
	Owns    []EntityReference `json:"owns,omitempty"`
	Follows []EntityReference `json:"follows,omitempty"`
}

// CreateUser is the POST/PUT request body for users
type CreateUser struct {
	Name        string      `json:"name" validate:"required,max=64"`
	DisplayName string      `json:"displayName,omitempty"`
	Description string      `json:"description,omitempty"`
	Email       string      `json:"email" validate:"required,email"`
	IsAdmin     bool        `json:"isAdmin,omitempty"`
	IsBot       bool        `json:"isBot,omitempty"`
	Teams       []uuid.UUID `json:"teams,omitempty"`
}

// ToEntity builds the user described by the request
func (c *CreateUser) ToEntity() *User {
	user := &User{
		Base: Base{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
		},
		Email:   c.Email,
		IsAdmin: c.IsAdmin,
		IsBot:   c.IsBot,
	}
	for _, id := range c.Teams {
		user.Teams = append(user.Teams, EntityReference{ID: id, Type: EntityTeam})
	}
	return user
}

// Team is a group of users that can own entities
type Team struct {
	Base
	Users []EntityReference `json:"users,omitempty"`
	Owns  []EntityReference `json:"owns,omitempty"`
}

// CreateTeam is the POST/PUT request body for teams
type CreateTeam struct {
	Name        string      `json:"name" validate:"required,max=64"`
	DisplayName string      `json:"displayName,omitempty"`
	Description string      `json:"description,omitempty"`
	Users       []uuid.UUID `json:"users,omitempty"`
}

// ToEntity builds the team described by the request
func (c *CreateTeam) ToEntity() *Team {
	team := &Team{Base: Base{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,
	}}
	for _, id := range c.Users {
		team.Users = append(team.Users, EntityReference{ID: id, Type: EntityUser})
	}
	return team
}
