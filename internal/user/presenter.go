package user

import "time"

// Response is the allow-listed view of a user sent to clients. The password
// hash and version counter have no field here.
type Response struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Gender        Gender    `json:"gender"`
	Email         string    `json:"email"`
	Street        string    `json:"street"`
	Apartment     string    `json:"apartment"`
	City          string    `json:"city"`
	Zip           string    `json:"zip"`
	Country       string    `json:"country"`
	Phone         string    `json:"phone"`
	IsAdmin       bool      `json:"isAdmin"`
	LikedProducts []string  `json:"likedProducts"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SignInResponse flattens the profile next to the token, with the email
// repeated under "user".
type SignInResponse struct {
	Message       string   `json:"message"`
	Token         string   `json:"token"`
	ID            string   `json:"id"`
	User          string   `json:"user"`
	Name          string   `json:"name"`
	Gender        Gender   `json:"gender"`
	Email         string   `json:"email"`
	Street        string   `json:"street"`
	Apartment     string   `json:"apartment"`
	City          string   `json:"city"`
	Zip           string   `json:"zip"`
	Country       string   `json:"country"`
	Phone         string   `json:"phone"`
	IsAdmin       bool     `json:"isAdmin"`
	LikedProducts []string `json:"likedProducts"`
}

func ToResponse(u User) Response {
	return Response{
		ID:            u.ID.Hex(),
		Name:          u.Name,
		Gender:        u.Gender,
		Email:         u.Email,
		Street:        u.Street,
		Apartment:     u.Apartment,
		City:          u.City,
		Zip:           u.Zip,
		Country:       u.Country,
		Phone:         u.Phone,
		IsAdmin:       u.IsAdmin,
		LikedProducts: hexIDs(u.LikedProducts),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func ToList(users []User) []Response {
	out := make([]Response, 0, len(users))
	for _, u := range users {
		out = append(out, ToResponse(u))
	}
	return out
}

func ToSignIn(s Session) SignInResponse {
	u := s.User
	return SignInResponse{
		Message:       "Login successful",
		Token:         s.Token,
		ID:            u.ID.Hex(),
		User:          u.Email,
		Name:          u.Name,
		Gender:        u.Gender,
		Email:         u.Email,
		Street:        u.Street,
		Apartment:     u.Apartment,
		City:          u.City,
		Zip:           u.Zip,
		Country:       u.Country,
		Phone:         u.Phone,
		IsAdmin:       u.IsAdmin,
		LikedProducts: hexIDs(u.LikedProducts),
	}
}
