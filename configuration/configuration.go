package configuration

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// hold connection to db
var DB *gorm.DB

// Settings loaded at startup
var Cfg Config

// Config holds every runtime setting of the service
type Config struct {
	Port string

	DBDSN         string
	RedisAddr     string
	RedisPassword string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	FrontendURL    string
	BackendURL     string
	AllowedOrigins []string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	PayFast PayFastConfig
	Twilio  TwilioConfig

	FirebaseCredentialsFile string
	BookingFee              float64
}

type PayFastConfig struct {
	MerchantID     string
	MerchantKey    string
	Passphrase     string
	Sandbox        bool
	NotifyURL      string
	ValidateServer bool
	ValidateIP     bool
	// SignMode is "sorted" or "documented" field order for checkout signatures
	SignMode string
}

type TwilioConfig struct {
	AccountSID      string
	AuthToken       string
	PhoneNumber     string
	VerifyServiceID string
	ForwardNumber   string
}

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("BACKEND_URL", "http://localhost:8080")
	v.SetDefault("ALLOWED_ORIGINS", "https://medmap.co.za,https://www.medmap.co.za,http://localhost:3000,http://localhost:5173")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "MedMap <no-reply@medmap.co.za>")
	v.SetDefault("PAYFAST_SANDBOX", true)
	v.SetDefault("PAYFAST_VALIDATE_SERVER", false)
	v.SetDefault("PAYFAST_VALIDATE_IP", false)
	v.SetDefault("PAYFAST_SIGN_MODE", "sorted")
	v.SetDefault("BOOKING_FEE", 10.00)

	return Config{
		Port:            v.GetString("PORT"),
		DBDSN:           v.GetString("DB_DSN"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		FrontendURL:     strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		BackendURL:      strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
		SMTPHost:        v.GetString("SMTP_HOST"),
		SMTPPort:        v.GetInt("SMTP_PORT"),
		SMTPUser:        v.GetString("SMTP_USER"),
		SMTPPassword:    v.GetString("SMTP_PASSWORD"),
		MailFrom:        v.GetString("MAIL_FROM"),
		PayFast: PayFastConfig{
			MerchantID:     v.GetString("PAYFAST_MERCHANT_ID"),
			MerchantKey:    v.GetString("PAYFAST_MERCHANT_KEY"),
			Passphrase:     v.GetString("PAYFAST_PASSPHRASE"),
			Sandbox:        v.GetBool("PAYFAST_SANDBOX"),
			NotifyURL:      v.GetString("PAYFAST_NOTIFY_URL"),
			ValidateServer: v.GetBool("PAYFAST_VALIDATE_SERVER"),
			ValidateIP:     v.GetBool("PAYFAST_VALIDATE_IP"),
			SignMode:       v.GetString("PAYFAST_SIGN_MODE"),
		},
		Twilio: TwilioConfig{
			AccountSID:      v.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:       v.GetString("TWILIO_AUTH_TOKEN"),
			PhoneNumber:     v.GetString("TWILIO_PHONE_NUMBER"),
			VerifyServiceID: v.GetString("TWILIO_VERIFY_SERVICE_ID"),
			ForwardNumber:   v.GetString("TWILIO_FORWARD_NUMBER"),
		},
		FirebaseCredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		BookingFee:              v.GetFloat64("BOOKING_FEE"),
	}
}

// Validate reports settings the server cannot start without
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// initializing db connection
func ConfigDB(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to the database: ", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate the database: ", err)
	}
}

// Migrate creates or updates every table the service uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Doctor{},
		&models.DoctorSchedule{},
		&models.Booking{},
		&models.Membership{},
		&models.PaymentTransaction{},
		&models.Notification{},
		&models.DeviceToken{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.SystemSetting{},
	)
}
