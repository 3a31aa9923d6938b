package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"marketplace-checkout/activities"
	"marketplace-checkout/codec"
	"marketplace-checkout/gateway"
	"marketplace-checkout/workflows"
)

const (
	WorkerVersion = "1.0.0"
	BuildID       = "1.0.0"
)

const (
	TaskQueueName = "checkout-session-queue"
)

func main() {
	_ = godotenv.Load()

	temporalAddress := getEnv("TEMPORAL_ADDRESS", "localhost:7233")
	cartBaseURL := getEnv("CART_SERVICE_URL", "http://localhost:8081")
	ordersBaseURL := getEnv("ORDERS_SERVICE_URL", "http://localhost:8082")
	gatewayBaseURL := getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8083")
	gatewayAPIKey := os.Getenv("PAYMENT_GATEWAY_API_KEY")

	// Checkout histories hold card input and shipping PII, so payloads are
	// encrypted before they reach the Temporal server.
	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	var keyBytes []byte
	var err error

	if encryptionKey != "" {
		keyBytes, err = hex.DecodeString(encryptionKey)
		if err != nil {
			log.Fatalf("Failed to decode encryption key: %v", err)
		}
	} else {
		keyBytes = make([]byte, 32)
		if _, err := rand.Read(keyBytes); err != nil {
			log.Fatalf("Failed to generate encryption key: %v", err)
		}
		log.Printf("Generated encryption key: %s", hex.EncodeToString(keyBytes))
		log.Println("Set ENCRYPTION_KEY environment variable to use this key in production")
	}

	dataConverter, err := codec.NewEncryptionDataConverter(keyBytes)
	if err != nil {
		log.Fatalf("Failed to create encryption data converter: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort:      temporalAddress,
		DataConverter: dataConverter,
	})
	if err != nil {
		log.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	buildID := getEnv("BUILD_ID", BuildID)

	w := worker.New(c, TaskQueueName, worker.Options{
		BuildID:                                buildID,
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	w.RegisterWorkflow(workflows.CheckoutWorkflow)

	checkoutActivities := activities.NewActivities(cartBaseURL, ordersBaseURL)
	w.RegisterActivity(checkoutActivities.GetCart)
	w.RegisterActivity(checkoutActivities.CreateOrderWithPaymentIntent)
	w.RegisterActivity(checkoutActivities.NotifyCustomer)

	gatewayClient := gateway.NewClient(gatewayBaseURL, gatewayAPIKey, 20*time.Second)
	paymentActivities := activities.NewPaymentActivities(gatewayClient)
	w.RegisterActivity(paymentActivities.RetrievePaymentIntentStatus)
	w.RegisterActivity(paymentActivities.CreatePaymentMethod)
	w.RegisterActivity(paymentActivities.ConfirmPayment)

	log.Println("Starting checkout worker...")
	log.Printf("Worker Version: %s", WorkerVersion)
	log.Printf("Build ID: %s", buildID)
	log.Printf("Temporal address: %s", temporalAddress)
	log.Printf("Task queue: %s", TaskQueueName)
	log.Printf("Cart service: %s", cartBaseURL)
	log.Printf("Orders service: %s", ordersBaseURL)
	log.Printf("Payment gateway: %s", gatewayBaseURL)
	log.Println("Registered workflows: CheckoutWorkflow")
	log.Println("Encryption: Enabled")

	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalf("Unable to start worker: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
