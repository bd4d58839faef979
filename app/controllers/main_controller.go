package controllers

import (
	"github.com/gofiber/fiber/v2"
)

func HandleIndex(c *fiber.Ctx) error {
	return sendText(c, fiber.StatusOK, "GuildPay is running!")
}

func HandleCheckoutSuccess(c *fiber.Ctx) error {
	return sendText(c, fiber.StatusOK, "Thank you for subscribing! Your role will be assigned in Discord as soon as the payment is confirmed.")
}

func HandleCheckoutCancel(c *fiber.Ctx) error {
	return sendText(c, fiber.StatusOK, "Checkout was canceled. You have not been charged.")
}
