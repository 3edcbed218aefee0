package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/domain"
	catalogsvc "github.com/burgerchain/resto/internal/service/catalog"
	ordersvc "github.com/burgerchain/resto/internal/service/order"
)

// Config задаёт параметры HTTP API.
type Config struct {
	// Accounts — пары логин/пароль для basic auth. Логин аутентифицированного
	// пользователя становится оператором создаваемых заказов.
	Accounts map[string]string
}

// Server — HTTP-шлюз поверх сервисов заказов и каталога.
type Server struct {
	router  *gin.Engine
	orders  *ordersvc.Service
	catalog *catalogsvc.Service
	idem    domain.IdempotencyRepository
	logger  *log.Entry
}

// NewServer собирает роутер со всеми маршрутами и middleware.
func NewServer(
	cfg Config,
	orders *ordersvc.Service,
	catalog *catalogsvc.Service,
	idem domain.IdempotencyRepository,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "http-api")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:  router,
		orders:  orders,
		catalog: catalog,
		idem:    idem,
		logger:  logger,
	}
	s.registerRoutes(cfg)

	return s
}

// Handler возвращает http.Handler для запуска сервера.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes(cfg Config) {
	api := s.router.Group("/api")
	if len(cfg.Accounts) > 0 {
		api.Use(gin.BasicAuth(cfg.Accounts))
	}

	api.GET("/menu", s.getMenu)

	api.POST("/orders", withIdempotency(s.idem, s.logger), s.createOrder)
	api.GET("/orders", s.listOrders)
	api.GET("/orders/:id", s.getOrder)
	api.POST("/orders/:id/close", withIdempotency(s.idem, s.logger), s.closeOrder)
	api.PATCH("/orders/:id/lines/:lineID", s.updateLine)
	api.DELETE("/orders/:id/lines/:lineID", s.removeLine)

	api.PUT("/dishes/:id/price", s.setDishPrice)

	admin := api.Group("/admin")
	admin.POST("/restaurants", s.createRestaurant)
	admin.POST("/categories", s.createCategory)
	admin.POST("/subcategories", s.createSubcategory)
	admin.POST("/dishes", s.createDish)
}

// operator возвращает логин, прошедший basic auth, или заголовок X-Operator,
// когда аутентификация выключена (тесты, локальный запуск).
func (s *Server) operator(c *gin.Context) string {
	if user, ok := c.Get(gin.AuthUserKey); ok {
		if name, ok := user.(string); ok {
			return name
		}
	}
	return c.GetHeader("X-Operator")
}

type orderLineView struct {
	ID        string          `json:"id"`
	DishID    string          `json:"dish_id"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

type orderView struct {
	ID           string          `json:"id"`
	Operator     string          `json:"operator"`
	RestaurantID string          `json:"restaurant_id"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Status       string          `json:"status"`
	Closed       bool            `json:"closed"`
	Lines        []orderLineView `json:"lines"`
	Timeline     []timelineView  `json:"timeline,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type timelineView struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toOrderView(order domain.Order, events []domain.TimelineEvent) orderView {
	lines := make([]orderLineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineView{
			ID:        line.ID,
			DishID:    line.DishID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
			CreatedAt: line.CreatedAt,
		})
	}

	var timeline []timelineView
	for _, event := range events {
		timeline = append(timeline, timelineView{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}

	return orderView{
		ID:           order.ID,
		Operator:     order.Operator,
		RestaurantID: order.RestaurantID,
		TotalPrice:   order.TotalPrice,
		Status:       order.Status,
		Closed:       order.Closed,
		Lines:        lines,
		Timeline:     timeline,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

func (s *Server) getMenu(c *gin.Context) {
	menu, err := s.catalog.GetMenu(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu})
}

type createOrderItemRequest struct {
	DishID   string `json:"dish_id" binding:"required"`
	Quantity int32  `json:"quantity"`
}

type createOrderRequest struct {
	RestaurantID string                   `json:"restaurant_id" binding:"required"`
	Items        []createOrderItemRequest `json:"items"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]ordersvc.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ordersvc.Item{DishID: item.DishID, Quantity: item.Quantity})
	}

	order, err := s.orders.CreateOrder(c.Request.Context(), s.operator(c), req.RestaurantID, items)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderView(order, nil))
}

func (s *Server) getOrder(c *gin.Context) {
	order, events, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order, events))
}

func (s *Server) listOrders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	orders, err := s.orders.ListOrders(c.Request.Context(), c.Query("restaurant_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order, nil))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

func (s *Server) closeOrder(c *gin.Context) {
	order, err := s.orders.CloseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order, nil))
}

type updateLineRequest struct {
	Quantity int32 `json:"quantity"`
}

func (s *Server) updateLine(c *gin.Context) {
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.UpdateLineQuantity(c.Request.Context(), c.Param("id"), c.Param("lineID"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order, nil))
}

func (s *Server) removeLine(c *gin.Context) {
	order, err := s.orders.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order, nil))
}

type setPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (s *Server) setDishPrice(c *gin.Context) {
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dish, err := s.catalog.SetDishPrice(c.Request.Context(), c.Param("id"), req.Price)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    dish.ID,
		"name":  dish.Name,
		"price": dish.Price,
	})
}

type createRestaurantRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (s *Server) createRestaurant(c *gin.Context) {
	var req createRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant, err := s.catalog.CreateRestaurant(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, restaurant)
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := s.catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

type createSubcategoryRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

func (s *Server) createSubcategory(c *gin.Context) {
	var req createSubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subcategory, err := s.catalog.CreateSubcategory(c.Request.Context(), req.CategoryID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subcategory)
}

type createDishRequest struct {
	Name          string          `json:"name" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	CategoryID    string          `json:"category_id" binding:"required"`
	SubcategoryID string          `json:"subcategory_id" binding:"required"`
}

func (s *Server) createDish(c *gin.Context) {
	var req createDishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dish, err := s.catalog.CreateDish(c.Request.Context(), req.Name, req.Price, req.CategoryID, req.SubcategoryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             dish.ID,
		"name":           dish.Name,
		"price":          dish.Price,
		"category_id":    dish.CategoryID,
		"subcategory_id": dish.SubcategoryID,
	})
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, domain.ErrQuantityInvalid
	}
	return value, nil
}
