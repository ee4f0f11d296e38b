package users

type UpdateRequest struct {
	IsAdmin *bool   `json:"isAdmin"`
	Status  *string `json:"status" binding:"omitempty,oneof=active blocked"`
	Name    *string `json:"name" binding:"omitempty,min=1,max=100"`
}
