package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

// ContentController serves interests, banners and contact messages.
type ContentController struct {
	Interests services.InterestService
	Banners   services.BannerService
	Contacts  services.ContactService
}

func NewContentController(interests services.InterestService, banners services.BannerService, contacts services.ContactService) *ContentController {
	return &ContentController{Interests: interests, Banners: banners, Contacts: contacts}
}

type interestRequest struct {
	Name *string `json:"name" form:"name" validate:"omitempty,max=100"`
}

type bannerRequest struct {
	Title *string `json:"title" form:"title" validate:"omitempty,max=200"`
}

type contactRequest struct {
	Name    string `json:"name" form:"name" validate:"required,max=120"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Message string `json:"message" form:"message" validate:"required,max=4000"`
}

func (cc *ContentController) CreateInterest(c *fiber.Ctx) error {
	var req interestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	image, err := files.file("file")
	if err != nil {
		return err
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	interest, err := cc.Interests.Create(c.UserContext(), name, image)
	if err != nil {
		return err
	}
	return utils.Created(c, "Interest created successfully", interest)
}

func (cc *ContentController) GetInterests(c *fiber.Ctx) error {
	interests, pg, err := cc.Interests.List(c.UserContext(), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Interests fetched successfully", interests, pg)
}

func (cc *ContentController) GetAllInterests(c *fiber.Ctx) error {
	interests, err := cc.Interests.All(c.UserContext())
	if err != nil {
		return err
	}
	return utils.OK(c, "Interests fetched successfully", interests)
}

func (cc *ContentController) GetInterest(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	interest, err := cc.Interests.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.OK(c, "Interest fetched successfully", interest)
}

func (cc *ContentController) UpdateInterest(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req interestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	image, err := files.file("file")
	if err != nil {
		return err
	}
	interest, err := cc.Interests.Update(c.UserContext(), id, req.Name, image)
	if err != nil {
		return err
	}
	return utils.OK(c, "Interest updated successfully", interest)
}

func (cc *ContentController) DeleteInterest(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := cc.Interests.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return utils.OK(c, "Interest deleted successfully", nil)
}

func (cc *ContentController) CreateBanner(c *fiber.Ctx) error {
	var req bannerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	image, err := files.file("file")
	if err != nil {
		return err
	}
	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	banner, err := cc.Banners.Create(c.UserContext(), title, image)
	if err != nil {
		return err
	}
	return utils.Created(c, "Banner created successfully", banner)
}

func (cc *ContentController) GetBanners(c *fiber.Ctx) error {
	banners, pg, err := cc.Banners.List(c.UserContext(), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Banners fetched successfully", banners, pg)
}

func (cc *ContentController) GetBanner(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	banner, err := cc.Banners.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.OK(c, "Banner fetched successfully", banner)
}

func (cc *ContentController) UpdateBanner(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req bannerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	image, err := files.file("file")
	if err != nil {
		return err
	}
	banner, err := cc.Banners.Update(c.UserContext(), id, req.Title, image)
	if err != nil {
		return err
	}
	return utils.OK(c, "Banner updated successfully", banner)
}

func (cc *ContentController) DeleteBanner(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := cc.Banners.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return utils.OK(c, "Banner deleted successfully", nil)
}

func (cc *ContentController) CreateContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	contact, err := cc.Contacts.Create(c.UserContext(), req.Name, req.Email, req.Message)
	if err != nil {
		return err
	}
	return utils.Created(c, "Message sent successfully", contact)
}

func (cc *ContentController) GetContacts(c *fiber.Ctx) error {
	contacts, pg, err := cc.Contacts.List(c.UserContext(), c.Query("search"), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Contacts fetched successfully", contacts, pg)
}

func (cc *ContentController) DeleteContact(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := cc.Contacts.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return utils.OK(c, "Contact deleted successfully", nil)
}
