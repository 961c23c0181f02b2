package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// AppView is one of the four presentation panes.
type AppView string

const (
	AppViewChat  AppView = "chat"
	AppViewBuild AppView = "build"
	AppViewDebug AppView = "debug"
	AppViewImage AppView = "image"
)

var AppViews = []AppView{AppViewChat, AppViewBuild, AppViewDebug, AppViewImage}
