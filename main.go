package main

import (
	"context"
	"log"

	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/controllers"
	"github.com/ironledgerdev/medmap-backend-sub001/jobs"
	"github.com/ironledgerdev/medmap-backend-sub001/notify"
	"github.com/ironledgerdev/medmap-backend-sub001/payfast"
	"github.com/ironledgerdev/medmap-backend-sub001/routes"
	"github.com/ironledgerdev/medmap-backend-sub001/telecom"
)

func Init() configuration.Config {
	cfg := configuration.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	configuration.Cfg = cfg

	configuration.ConfigDB(cfg.DBDSN)
	configuration.InitRedis(cfg.RedisAddr, cfg.RedisPassword)
	authentication.Configure(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Notifications: email, push and live streams
	var mailer notify.Mailer
	if cfg.SMTPUser != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Println("SMTP_USER not set, emails are disabled")
	}
	var pusher notify.Pusher
	if cfg.FirebaseCredentialsFile != "" {
		p, err := notify.NewFirebasePusher(context.Background(), cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Printf("Push notifications disabled: %v", err)
		} else {
			pusher = p
		}
	}
	controllers.Notifications = notify.NewService(configuration.DB, mailer, pusher, notify.NewHub())

	// PayFast checkout and ITN verification
	pf := cfg.PayFast
	client := payfast.NewClient(pf.MerchantID, pf.MerchantKey, pf.Passphrase, pf.Sandbox, pf.NotifyURL)
	if pf.SignMode != "" {
		client.SignMode = pf.SignMode
	}
	if client.NotifyURL == "" {
		client.NotifyURL = cfg.BackendURL + "/api/payments/notify/"
	}
	controllers.PayFast = client
	controllers.ITNVerifier = &payfast.Verifier{Client: client, ValidateServer: pf.ValidateServer, ValidateIP: pf.ValidateIP}
	controllers.ITNGuard = payfast.NewRedisGuard(configuration.Client)

	// Twilio voice and phone verification
	tw := telecom.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber, cfg.Twilio.VerifyServiceID)
	controllers.Caller = tw
	controllers.PhoneVerifier = tw

	return cfg
}

func main() {
	//Perform application initialization
	cfg := Init()

	worker := jobs.NewWorker(configuration.DB, controllers.Notifications)
	scheduler, err := worker.StartScheduler()
	if err != nil {
		log.Fatal("Failed to start jobs: ", err)
	}
	defer scheduler.Stop()

	r := routes.UserRoutes(cfg.AllowedOrigins)

	//Run the engine on the configured port
	if err := r.Run(":" + cfg.Port); err != nil {
		panic(err)
	}
}
