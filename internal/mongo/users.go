package mongo

import (
	"context"

	"VectorInit/internal/errs"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Grant binds a role to one database.
type Grant struct {
	Role string `bson:"role"`
	DB   string `bson:"db"`
}

type UserSpec struct {
	Username string
	Password string
	Roles    []Grant
}

func (u UserSpec) roles() bson.A {
	out := make(bson.A, 0, len(u.Roles))
	for _, g := range u.Roles {
		out = append(out, bson.D{{Key: "role", Value: g.Role}, {Key: "db", Value: g.DB}})
	}
	return out
}

// userCommand builds createUser/updateUser. Both take the same shape and the
// role list is always sent in full.
func userCommand(name string, u UserSpec) bson.D {
	return bson.D{
		{Key: name, Value: u.Username},
		{Key: "pwd", Value: u.Password},
		{Key: "roles", Value: u.roles()},
	}
}

// CreateUser adds the principal to the selected database's auth store.
// An existing user surfaces as errs.ErrDuplicateResource.
func (c *Client) CreateUser(ctx context.Context, u UserSpec) error {
	if err := c.DB.RunCommand(ctx, userCommand("createUser", u)).Err(); err != nil {
		return errs.ClassifyCommand(err)
	}
	log.Info().Str("user", u.Username).Str("db", c.DB.Name()).Int("roles", len(u.Roles)).Msg("user-created")
	return nil
}

// UpdateUser replaces the password and the complete role list.
func (c *Client) UpdateUser(ctx context.Context, u UserSpec) error {
	if err := c.DB.RunCommand(ctx, userCommand("updateUser", u)).Err(); err != nil {
		return errs.ClassifyCommand(err)
	}
	log.Info().Str("user", u.Username).Str("db", c.DB.Name()).Msg("user-updated")
	return nil
}

func (c *Client) UserExists(ctx context.Context, username string) (bool, error) {
	cmd := bson.D{{Key: "usersInfo", Value: bson.D{
		{Key: "user", Value: username},
		{Key: "db", Value: c.DB.Name()},
	}}}
	var out struct {
		Users []bson.Raw `bson:"users"`
	}
	if err := c.DB.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return false, errs.ClassifyCommand(err)
	}
	return len(out.Users) > 0, nil
}

// EnsureUser creates the user, or brings an existing one to exactly the
// given password and grants.
func (c *Client) EnsureUser(ctx context.Context, u UserSpec) error {
	ok, err := c.UserExists(ctx, u.Username)
	if err != nil {
		return err
	}
	if ok {
		return c.UpdateUser(ctx, u)
	}
	return c.CreateUser(ctx, u)
}
