package storefront

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// ControllerRoutes holds the paths the controller mounts
type ControllerRoutes struct {
	Register       string
	VerifyOTP      string
	Login          string
	Logout         string
	Profile        string
	ChangePassword string
	Products       string
	Health         string
}

// Controller exposes the account and catalog services over HTTP
type Controller struct {
	Debug    bool
	Logger   Logger
	Accounts *AccountService
	Catalog  *CatalogService
	Guard    Guard
	Limiter  *RateLimiter
	Routes   *ControllerRoutes

	RegisterHandler  *RegisterAccountHandler
	VerifyOTPHandler *VerifyOTPHandler
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller) *Controller

// WithControllerDebug turns on payload dumps
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// WithControllerLogger sets the logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithRateLimiter limits the unauthenticated account endpoints
func WithRateLimiter(limiter *RateLimiter) ControllerOption {
	return func(c *Controller) *Controller {
		c.Limiter = limiter
		return c
	}
}

// NewController returns a Controller
func NewController(accounts *AccountService, catalog *CatalogService, guard Guard, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:   defLogger(),
		Accounts: accounts,
		Catalog:  catalog,
		Guard:    guard,
		Routes: &ControllerRoutes{
			Register:       "/register",
			VerifyOTP:      "/verify-otp",
			Login:          "/login",
			Logout:         "/logout",
			Profile:        "/profile",
			ChangePassword: "/change-password",
			Products:       "/products",
			Health:         "/test",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Accounts == nil {
		panic("Missing AccountService in controller...")
	}

	if c.Catalog == nil {
		panic("Missing CatalogService in controller...")
	}

	if c.Guard == nil {
		panic("Missing Guard in controller...")
	}

	c.RegisterHandler = NewRegisterAccountHandler(c.Accounts)
	c.VerifyOTPHandler = NewVerifyOTPHandler(c.Accounts)

	return c
}

// RegisterRoutes mounts every route on router
func (h *Controller) RegisterRoutes(router fiber.Router) {
	limit := h.Limiter.Handler()
	authenticated := RequireAccount(h.Guard, "")
	admin := RequireAccount(h.Guard, RoleAdmin)

	router.Get(h.Routes.Health, h.Health)

	router.Post(h.Routes.Register, limit, h.Register)
	router.Post(h.Routes.VerifyOTP, limit, h.VerifyOTP)
	router.Post(h.Routes.Login, limit, h.Login)

	router.Get(h.Routes.Profile, authenticated, h.Profile)
	router.Put(h.Routes.Profile, authenticated, h.UpdateProfile)
	router.Put(h.Routes.ChangePassword, authenticated, h.ChangePassword)
	router.Post(h.Routes.Logout, authenticated, h.Logout)

	item := fmt.Sprintf("%s/:id", h.Routes.Products)
	router.Get(h.Routes.Products, authenticated, h.ListProducts)
	router.Get(item, authenticated, h.ShowProduct)
	router.Post(h.Routes.Products, admin, h.CreateProduct)
	router.Put(item, admin, h.UpdateProduct)
	router.Delete(item, admin, h.DeleteProduct)
}

func (h *Controller) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "API is working"})
}

func (h *Controller) Register(c *fiber.Ctx) error {
	payload := new(RegisterInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	h.dump("register payload", fiber.Map{"name": payload.Name, "email": payload.Email})

	if err := h.RegisterHandler.Execute(c.UserContext(), RegisterAccountMessage{Input: *payload}); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully. OTP sent to email.",
	})
}

func (h *Controller) VerifyOTP(c *fiber.Ctx) error {
	payload := new(VerifyOTPInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	h.dump("verify payload", fiber.Map{"email": payload.Email})

	var account *Account
	var token string
	err := h.VerifyOTPHandler.Execute(c.UserContext(), VerifyOTPMessage{
		Input: *payload,
		OnResponse: func(a *Account, t string) {
			account, token = a, t
		},
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Email verified successfully!",
		"user":    account,
		"token":   token,
	})
}

func (h *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	h.dump("login payload", fiber.Map{"email": payload.Email})

	account, token, err := h.Accounts.Login(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    account,
		"token":   token,
	})
}

func (h *Controller) Logout(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	if err := h.Accounts.Logout(c.UserContext(), account); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (h *Controller) Profile(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

func (h *Controller) UpdateProfile(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	payload := new(UpdateProfileInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	updated, err := h.Accounts.UpdateProfile(c.UserContext(), account, *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    updated,
	})
}

func (h *Controller) ChangePassword(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	payload := new(ChangePasswordInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := h.Accounts.ChangePassword(c.UserContext(), account, *payload); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

func (h *Controller) ListProducts(c *fiber.Ctx) error {
	products, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *Controller) ShowProduct(c *fiber.Ctx) error {
	product, err := h.Catalog.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}

func (h *Controller) CreateProduct(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	payload := new(ProductInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	h.dump("product payload", payload)

	product, err := h.Catalog.Create(c.UserContext(), account, *payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created successfully",
		"data":    product,
	})
}

func (h *Controller) UpdateProduct(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	payload := new(ProductInput)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	product, err := h.Catalog.Update(c.UserContext(), account, c.Params("id"), *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"data":    product,
	})
}

func (h *Controller) DeleteProduct(c *fiber.Ctx) error {
	account, err := h.currentAccount(c)
	if err != nil {
		return err
	}

	if err := h.Catalog.Delete(c.UserContext(), account, c.Params("id")); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

func (h *Controller) currentAccount(c *fiber.Ctx) (*Account, error) {
	account, ok := RequestAccount(c)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return account, nil
}

// dump logs a payload in debug mode. Callers pass redacted values only.
func (h *Controller) dump(msg string, payload any) {
	if !h.Debug {
		return
	}
	h.Logger.Debug(msg, "payload", print.MaybePrettyJSON(payload))
}
