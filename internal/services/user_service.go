package services

import (
	"encoding/json"
	"log"

	"jsonplaceholder/internal/models"
	"jsonplaceholder/internal/repositories"
	"jsonplaceholder/pkg/rabbitmq"
)

// UserService handles business logic for user profile CRUD, including the
// DTO<->entity mapping and partial nested updates.
type UserService struct {
	userRepo  repositories.UserRepository
	txManager repositories.TxManager
	mqClient  *rabbitmq.Client // optional, nil disables event publishing
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, txManager repositories.TxManager, mqClient *rabbitmq.Client) *UserService {
	return &UserService{
		userRepo:  userRepo,
		txManager: txManager,
		mqClient:  mqClient,
	}
}

// GetAllUsers retrieves all user profiles in insertion order.
func (s *UserService) GetAllUsers() ([]models.UserDTO, error) {
	users, err := s.userRepo.GetAll()
	if err != nil {
		return nil, err
	}

	dtos := make([]models.UserDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, *toUserDTO(&users[i]))
	}
	return dtos, nil
}

// GetUserByID retrieves a single user profile.
func (s *UserService) GetUserByID(id uint) (*models.UserDTO, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user), nil
}

// CreateUser persists a new user profile and returns it with its assigned ID.
func (s *UserService) CreateUser(dto *models.UserDTO) (*models.UserDTO, error) {
	user := toUserEntity(dto)
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.publishEvent("user.created", map[string]interface{}{
		"userID": user.ID,
		"email":  user.Email,
	})

	return toUserDTO(user), nil
}

// UpdateUser merges the incoming representation into the stored profile and
// saves it. Scalar fields are overwritten unconditionally; each nested
// section (Address, its Geo, Company) is replaced only when the payload
// provides it. The read-merge-write sequence runs in one transaction so no
// partial update is visible to concurrent readers.
func (s *UserService) UpdateUser(id uint, dto *models.UserDTO) (*models.UserDTO, error) {
	var updated *models.User
	err := s.txManager.Do(func(users repositories.UserRepository, _ repositories.AuthUserRepository) error {
		user, err := users.GetByID(id)
		if err != nil {
			return err
		}
		applyUserUpdate(user, dto)
		if err := users.Update(user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toUserDTO(updated), nil
}

// DeleteUser removes a user profile and, in the same transaction, any
// credential referencing it, so registration never leaves orphaned
// credentials behind a deleted profile.
func (s *UserService) DeleteUser(id uint) error {
	err := s.txManager.Do(func(users repositories.UserRepository, authUsers repositories.AuthUserRepository) error {
		if _, err := users.GetByID(id); err != nil {
			return err
		}
		if err := authUsers.DeleteByUserID(id); err != nil {
			return err
		}
		return users.Delete(id)
	})
	if err != nil {
		return err
	}

	s.publishEvent("user.deleted", map[string]interface{}{
		"userID": id,
	})

	return nil
}

// publishEvent marshals payload and publishes it as eventType, logging
// failures instead of surfacing them.
func (s *UserService) publishEvent(eventType string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", eventType, err)
		return
	}
	if err := s.mqClient.Publish(eventType, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", eventType, err)
	}
}

// toUserDTO maps a stored profile to its wire representation.
func toUserDTO(user *models.User) *models.UserDTO {
	dto := &models.UserDTO{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		Phone:    user.Phone,
		Website:  user.Website,
	}

	if user.Address != nil {
		dto.Address = &models.AddressDTO{
			Street:  user.Address.Street,
			Suite:   user.Address.Suite,
			City:    user.Address.City,
			Zipcode: user.Address.Zipcode,
		}
		if user.Address.Geo != nil {
			dto.Address.Geo = &models.GeoDTO{
				Lat: user.Address.Geo.Lat,
				Lng: user.Address.Geo.Lng,
			}
		}
	}

	if user.Company != nil {
		dto.Company = &models.CompanyDTO{
			Name:        user.Company.Name,
			CatchPhrase: user.Company.CatchPhrase,
			Bs:          user.Company.Bs,
		}
	}

	return dto
}

// toUserEntity maps an incoming representation to a fresh entity. Nested
// sections are stored only when provided.
func toUserEntity(dto *models.UserDTO) *models.User {
	user := &models.User{
		Name:     dto.Name,
		Username: dto.Username,
		Email:    dto.Email,
		Phone:    dto.Phone,
		Website:  dto.Website,
	}

	if dto.Address != nil {
		user.Address = &models.Address{
			Street:  dto.Address.Street,
			Suite:   dto.Address.Suite,
			City:    dto.Address.City,
			Zipcode: dto.Address.Zipcode,
		}
		if dto.Address.Geo != nil {
			user.Address.Geo = &models.Geo{
				Lat: dto.Address.Geo.Lat,
				Lng: dto.Address.Geo.Lng,
			}
		}
	}

	if dto.Company != nil {
		user.Company = &models.Company{
			Name:        dto.Company.Name,
			CatchPhrase: dto.Company.CatchPhrase,
			Bs:          dto.Company.Bs,
		}
	}

	return user
}

// applyUserUpdate merges dto into user. Scalars always win; an absent nested
// section leaves the stored section untouched, and a present Address with an
// absent Geo overwrites the Address scalars while preserving the stored Geo.
func applyUserUpdate(user *models.User, dto *models.UserDTO) {
	user.Name = dto.Name
	user.Username = dto.Username
	user.Email = dto.Email
	user.Phone = dto.Phone
	user.Website = dto.Website

	if dto.Address != nil {
		if user.Address == nil {
			user.Address = &models.Address{}
		}
		user.Address.Street = dto.Address.Street
		user.Address.Suite = dto.Address.Suite
		user.Address.City = dto.Address.City
		user.Address.Zipcode = dto.Address.Zipcode

		if dto.Address.Geo != nil {
			if user.Address.Geo == nil {
				user.Address.Geo = &models.Geo{}
			}
			user.Address.Geo.Lat = dto.Address.Geo.Lat
			user.Address.Geo.Lng = dto.Address.Geo.Lng
		}
	}

	if dto.Company != nil {
		if user.Company == nil {
			user.Company = &models.Company{}
		}
		user.Company.Name = dto.Company.Name
		user.Company.CatchPhrase = dto.Company.CatchPhrase
		user.Company.Bs = dto.Company.Bs
	}
}
