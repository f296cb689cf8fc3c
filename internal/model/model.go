// Package model содержит доменные сущности сервиса аренды автомобилей.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Region описывает регион.
type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// District описывает район внутри региона.
type District struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	RegionID int64  `json:"region_id"`
}

// Category описывает категорию автомобилей.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CarAmount int       `json:"car_amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capacity описывает вместимость автомобиля.
type Capacity string

const (
	CapacityTwo         Capacity = "2"
	CapacityFour        Capacity = "4"
	CapacitySix         Capacity = "6"
	CapacityEightOrMore Capacity = "8 or more"
)

// Valid сообщает, входит ли значение в допустимый набор.
func (c Capacity) Valid() bool {
	switch c {
	case CapacityTwo, CapacityFour, CapacitySix, CapacityEightOrMore:
		return true
	}
	return false
}

// Steering описывает тип рулевого управления.
type Steering string

const (
	SteeringManual   Steering = "Manual"
	SteeringPower    Steering = "Power"
	SteeringElectric Steering = "Electric"
)

// Valid сообщает, входит ли значение в допустимый набор.
func (s Steering) Valid() bool {
	switch s {
	case SteeringManual, SteeringPower, SteeringElectric:
		return true
	}
	return false
}

// Car описывает автомобиль каталога.
type Car struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	CategoryID        int64      `json:"category_id"`
	Capacity          Capacity   `json:"capacity"`
	Steering          Steering   `json:"steering"`
	Gasoline          string     `json:"gasoline"`
	Price             int64      `json:"price"`
	MainImage         string     `json:"main_image"`
	Images            []CarImage `json:"images"`
	Reviews           []Review   `json:"reviews,omitempty"`
	TelegramMessageID *int64     `json:"telegram_message_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CarImage описывает дополнительное изображение автомобиля.
type CarImage struct {
	ID        int64     `json:"id"`
	CarID     int64     `json:"car_id"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CarFilter содержит параметры фильтрации списка автомобилей.
type CarFilter struct {
	PriceMin   *int64
	PriceMax   *int64
	Capacity   Capacity
	CategoryID *int64
	Search     string
}

// Review описывает отзыв пользователя об автомобиле.
type Review struct {
	ID        int64     `json:"id"`
	CarID     int64     `json:"car_id"`
	UserID    int64     `json:"user_id"`
	Stars     string    `json:"stars"`
	Text      string    `json:"text"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User описывает зарегистрированного пользователя.
// Пользователь идентифицируется номером телефона или адресом почты.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash []byte    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identifier возвращает телефон или почту пользователя.
func (u *User) Identifier() string {
	if u.PhoneNumber != nil {
		return *u.PhoneNumber
	}
	if u.Email != nil {
		return *u.Email
	}
	return ""
}

// Wishlist описывает автомобиль в избранном пользователя.
type Wishlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CarID     int64     `json:"car_id"`
	Car       *Car      `json:"car,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Location описывает пункт выдачи или возврата автомобиля.
type Location string

const (
	LocationTashkentAirport  Location = "TAS_AIR"
	LocationTashkentCity     Location = "TAS_CITY"
	LocationSamarkandStation Location = "SAM_ST"
	LocationBukharaDowntown  Location = "BUH_DT"
)

// Locations возвращает все пункты в порядке отображения.
func Locations() []Location {
	return []Location{
		LocationTashkentAirport,
		LocationTashkentCity,
		LocationSamarkandStation,
		LocationBukharaDowntown,
	}
}

// Valid сообщает, входит ли значение в допустимый набор.
func (l Location) Valid() bool {
	switch l {
	case LocationTashkentAirport, LocationTashkentCity, LocationSamarkandStation, LocationBukharaDowntown:
		return true
	}
	return false
}

// Title возвращает человекочитаемое название пункта.
func (l Location) Title() string {
	switch l {
	case LocationTashkentAirport:
		return "Tashkent Airport"
	case LocationTashkentCity:
		return "Tashkent City Center"
	case LocationSamarkandStation:
		return "Samarkand Station"
	case LocationBukharaDowntown:
		return "Bukhara Downtown"
	}
	return string(l)
}

// Clock хранит время суток в минутах от полуночи.
type Clock int

// NewClock создаёт время суток из часов и минут.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// Hour возвращает часы.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute возвращает минуты.
func (c Clock) Minute() int { return int(c) % 60 }

// String форматирует время как HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalJSON кодирует время как строку HH:MM.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON разбирает строку HH:MM или HH:MM:SS.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return fmt.Errorf("invalid time %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("invalid time %q", s)
	}
	*c = NewClock(h, m)
	return nil
}

// DateLayout задаёт формат дат в API.
const DateLayout = "2006-01-02"

// Date хранит календарную дату без времени.
type Date struct {
	time.Time
}

// NewDate создаёт дату из года, месяца и дня.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON кодирует дату в формате YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON разбирает дату в формате YYYY-MM-DD.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}

// BillingInfo содержит данные плательщика.
type BillingInfo struct {
	ID         int64  `json:"id"`
	UserID     *int64 `json:"user_id,omitempty"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	DistrictID *int64 `json:"district_id,omitempty"`
}

// RentalInfo содержит параметры выдачи и возврата автомобиля.
type RentalInfo struct {
	ID              int64    `json:"id"`
	CarID           int64    `json:"car_id"`
	PickupLocation  Location `json:"pickup_location"`
	PickupDate      Date     `json:"pickup_date"`
	PickupTime      Clock    `json:"pickup_time"`
	DropoffLocation Location `json:"dropoff_location"`
	DropoffDate     Date     `json:"dropoff_date"`
	DropoffTime     Clock    `json:"dropoff_time"`
}

// Payment описывает сохранённые платёжные данные пользователя.
// Полный номер карты и CVV не хранятся.
type Payment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	CardType       string    `json:"card_type"`
	CardHolder     string    `json:"card_holder"`
	CardLast4      string    `json:"card_last4"`
	ExpirationDate string    `json:"expiration_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// RentalOrder описывает заказ аренды, оформленный через веб.
type RentalOrder struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Billing   BillingInfo `json:"billing"`
	Rental    RentalInfo  `json:"rental"`
	PaymentID *int64      `json:"payment_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// PaymentMethod описывает способ оплаты аренды через бота.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// BotRental описывает заказ аренды, оформленный через бота.
type BotRental struct {
	ID               int64         `json:"id"`
	ChatID           int64         `json:"chat_id"`
	TelegramUserID   int64         `json:"telegram_user_id"`
	Billing          BillingInfo   `json:"billing"`
	Rental           RentalInfo    `json:"rental"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	Paid             bool          `json:"paid"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	TelegramChargeID string        `json:"telegram_charge_id,omitempty"`
	ProviderChargeID string        `json:"provider_charge_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Origin описывает канал, через который оформлена аренда.
type Origin string

const (
	OriginWeb Origin = "web"
	OriginBot Origin = "bot"
)

// TopCar содержит число аренд автомобиля.
type TopCar struct {
	CarID        int64  `json:"car_id"`
	Name         string `json:"car_name"`
	CategoryName string `json:"category_name"`
	RentalCount  int64  `json:"rental_count"`
}

// Transaction описывает аренду в ленте последних операций.
type Transaction struct {
	RentalID        int64    `json:"rental_id"`
	CarID           int64    `json:"car_id"`
	CarName         string   `json:"car_name"`
	PickupLocation  Location `json:"pickup_location"`
	PickupDate      Date     `json:"pickup_date"`
	PickupTime      Clock    `json:"pickup_time"`
	DropoffLocation Location `json:"dropoff_location"`
	DropoffDate     Date     `json:"dropoff_date"`
	DropoffTime     Clock    `json:"dropoff_time"`
	Origin          Origin   `json:"origin"`
}
