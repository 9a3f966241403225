package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/cart/cache"
	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"golang.org/x/sync/singleflight"
)

var (
	ErrQuantityOutOfRange = errors.New("quantity out of range")
	ErrOutOfStock         = errors.New("product out of stock")
)

type Service struct {
	repo    Repository
	cache   cache.CartCache
	catalog catalog.Repository
	sfg     singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache cache.CartCache, catalog catalog.Repository) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
	}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) { // missing cart reads as empty cart
			return &domain.Cart{
				UserID:    userID,
				Lines:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddLine resolves the product in the catalog and writes the cart line
// with the catalog's name, current price and stock ceiling. A line for
// the same product is replaced outright; quantities are not merged.
func (s *Service) AddLine(ctx context.Context, userID string, productID int64, quantity int) (*domain.CartLine, error) {
	if quantity < 1 {
		return nil, ErrQuantityOutOfRange
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < 1 {
		return nil, ErrOutOfStock
	}
	if quantity > product.Stock {
		return nil, ErrQuantityOutOfRange
	}

	line := domain.CartLine{
		ProductID:   product.ID,
		Name:        product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
		MaxQuantity: product.Stock,
	}

	if errAdd := s.repo.UpsertLine(ctx, userID, line); errAdd != nil {
		log.Printf("repo upsert line error: %v", errAdd)
		return nil, errAdd
	}

	s.invalidateCache(userID)
	return &line, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrQuantityOutOfRange
	}

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	for _, line := range cart.Lines {
		if line.ProductID == productID && quantity > line.MaxQuantity {
			return ErrQuantityOutOfRange
		}
	}

	if errUpdate := s.repo.UpdateLineQuantity(ctx, userID, productID, quantity); errUpdate != nil {
		log.Printf("repo update line quantity error: %v", errUpdate)
		return errUpdate
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) RemoveLine(ctx context.Context, userID string, productID int64) error {
	if errRemove := s.repo.RemoveLine(ctx, userID, productID); errRemove != nil {
		log.Printf("repo remove line error: %v", errRemove)
		return errRemove
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) SetShippingAddress(ctx context.Context, userID string, address domain.Address) error {
	if err := s.repo.SetShippingAddress(ctx, userID, address); err != nil {
		log.Printf("repo set shipping address error: %v", err)
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) SetPaymentMethod(ctx context.Context, userID string, method domain.PaymentMethod) error {
	if !method.Valid() {
		return domain.ErrInvalidPaymentMethod
	}
	if err := s.repo.SetPaymentMethod(ctx, userID, method); err != nil {
		log.Printf("repo set payment method error: %v", err)
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if errDelete := s.repo.DeleteCart(ctx, userID); errDelete != nil {
		log.Printf("repo delete cart error: %v", errDelete)
		return errDelete
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
